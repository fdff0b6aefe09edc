package assemble

import (
	"strconv"
	"strings"
)

// blockTags are the elements the markup package emits on a single line.
var blockTags = []string{"h1", "h2", "h3", "h4", "blockquote", "table", "ul"}

// fold turns blank-line separated text into paragraph breaks and single
// newlines into <br>. Raw <div> regions are opaque and come back untouched.
// Newlines next to an opaque line or a converted block element stay plain
// newlines instead of becoming <br>.
func fold(text string) string {
	text, saved := protect(text)

	chunks := strings.Split(text, "\n\n")
	for i, c := range chunks {
		chunks[i] = joinLines(strings.Split(c, "\n"))
	}
	out := strings.Join(chunks, "</p><p>")

	if len(saved) == 0 {
		return out
	}
	pairs := make([]string, 0, 2*len(saved))
	for i, s := range saved {
		pairs = append(pairs, placeholder(i), s)
	}
	return strings.NewReplacer(pairs...).Replace(out)
}

func joinLines(lines []string) string {
	var sb strings.Builder
	for i, l := range lines {
		if i > 0 {
			if isOpaque(lines[i-1]) || isOpaque(l) {
				sb.WriteByte('\n')
			} else {
				sb.WriteString("<br>")
			}
		}
		sb.WriteString(l)
	}
	return sb.String()
}

// protect swaps every raw <div> region for a placeholder line. A region runs
// from a line starting with "<div" to the line that balances its closing
// tags, or to the end of the text if it never closes.
func protect(text string) (string, []string) {
	if !strings.Contains(text, "<div") {
		return text, nil
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var saved []string

	for i := 0; i < len(lines); {
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), "<div") {
			out = append(out, lines[i])
			i++
			continue
		}
		depth, j := 0, i
		for ; j < len(lines); j++ {
			depth += strings.Count(lines[j], "<div") - strings.Count(lines[j], "</div>")
			if depth <= 0 {
				break
			}
		}
		if j == len(lines) {
			j--
		}
		saved = append(saved, strings.Join(lines[i:j+1], "\n"))
		out = append(out, placeholder(len(saved)-1))
		i = j + 1
	}
	return strings.Join(out, "\n"), saved
}

func placeholder(i int) string {
	return "\x00" + strconv.Itoa(i) + "\x00"
}

func isOpaque(line string) bool {
	if len(line) > 1 && line[0] == 0 && line[len(line)-1] == 0 {
		return true
	}
	for _, tag := range blockTags {
		if strings.HasPrefix(line, "<"+tag+">") && strings.HasSuffix(line, "</"+tag+">") {
			return true
		}
	}
	return false
}
