// Package markup rewrites the supported Markdown subset into HTML fragments.
//
// The subset is deliberately small: ATX headers (levels 1-4), single-line
// blockquotes, optional flat list items, bold and italic spans, and pipe
// tables. Everything else passes through untouched, including raw HTML.
// All functions are pure and safe for concurrent use.
package markup

import "strings"

// Options controls optional transformations.
type Options struct {
	// ConvertLists turns "- " prefixed lines into list items. Off by default,
	// in which case list markers stay literal text.
	ConvertLists bool
}

// Kind classifies a Block.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeader
	KindBlockquote
	KindListItem
	KindTable
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindBlockquote:
		return "blockquote"
	case KindListItem:
		return "list_item"
	case KindTable:
		return "table"
	default:
		return "paragraph"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Block is a classified, contiguous span of source lines.
type Block struct {
	Kind  Kind   `json:"kind"`
	Level int    `json:"level,omitempty"`
	Text  string `json:"text"`
	Table *Table `json:"table,omitempty"`
}

// Normalize converts CRLF and lone CR line endings to LF and drops NUL bytes,
// which the assembler reserves for placeholders.
func Normalize(text string) string {
	if !strings.ContainsAny(text, "\r\x00") {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.ReplaceAll(text, "\x00", "")
}

// Classify scans text top to bottom and groups its lines into blocks.
// Blank lines separate paragraphs and are not returned.
func Classify(text string, opts Options) []Block {
	lines := strings.Split(Normalize(text), "\n")

	var (
		out  []Block
		para []string
	)
	flush := func() {
		if len(para) > 0 {
			out = append(out, Block{Kind: KindParagraph, Text: strings.Join(para, "\n")})
			para = nil
		}
	}

	for i := 0; i < len(lines); {
		if t, n, ok := ParseTable(lines[i:]); ok {
			flush()
			out = append(out, Block{Kind: KindTable, Text: strings.Join(lines[i:i+n], "\n"), Table: &t})
			i += n
			continue
		}
		line := lines[i]
		i++
		if b, ok := classifyLine(line, opts); ok {
			flush()
			out = append(out, b)
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		para = append(para, line)
	}
	flush()
	return out
}
