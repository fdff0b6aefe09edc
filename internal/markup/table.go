package markup

import "strings"

// Table is a parsed pipe table. Cells are trimmed and never empty.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// HTML renders the table on a single line. Rows are emitted with whatever
// cells they have; no padding or truncation against the header.
func (t Table) HTML() string {
	var sb strings.Builder
	sb.WriteString("<table><tr>")
	for _, h := range t.Header {
		sb.WriteString("<th>")
		sb.WriteString(h)
		sb.WriteString("</th>")
	}
	sb.WriteString("</tr>")
	for _, row := range t.Rows {
		sb.WriteString("<tr>")
		for _, c := range row {
			sb.WriteString("<td>")
			sb.WriteString(c)
			sb.WriteString("</td>")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</table>")
	return sb.String()
}

// ParseTable tries to read a table starting at lines[0]. It needs a header
// row, a separator row right after it and at least one data row. Data rows
// end at the first blank or non-pipe line. n is the number of lines consumed.
func ParseTable(lines []string) (t Table, n int, ok bool) {
	if len(lines) < 3 || !isPipeRow(lines[0]) || !isSeparatorRow(lines[1]) {
		return Table{}, 0, false
	}
	n = 2
	for n < len(lines) && isPipeRow(lines[n]) {
		n++
	}
	if n == 2 {
		return Table{}, 0, false
	}

	t.Header = splitCells(lines[0])
	t.Rows = make([][]string, 0, n-2)
	for _, l := range lines[2:n] {
		t.Rows = append(t.Rows, splitCells(l))
	}
	return t, n, true
}

// ConvertTables replaces every recognised table block with its HTML. Pipe
// blocks lacking the full header/separator/data shape are left as they are.
func ConvertTables(text string) string {
	lines := strings.Split(Normalize(text), "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		if t, n, ok := ParseTable(lines[i:]); ok {
			out = append(out, t.HTML())
			i += n
			continue
		}
		out = append(out, lines[i])
		i++
	}
	return strings.Join(out, "\n")
}

// isPipeRow reports whether line is "|" + at least one character + "|".
func isPipeRow(line string) bool {
	s := strings.TrimSpace(line)
	return len(s) >= 3 && s[0] == '|' && s[len(s)-1] == '|'
}

func isSeparatorRow(line string) bool {
	if !isPipeRow(line) {
		return false
	}
	dash := false
	for _, r := range strings.TrimSpace(line) {
		switch r {
		case '-':
			dash = true
		case '|', ':', ' ', '\t':
		default:
			return false
		}
	}
	return dash
}

func splitCells(line string) []string {
	parts := strings.Split(strings.TrimSpace(line), "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := strings.TrimSpace(p); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}
