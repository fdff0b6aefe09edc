package markup

import (
	"strconv"
	"strings"
)

// headerMarkers is ordered longest first so that each line matches the
// marker of its exact length.
var headerMarkers = []struct {
	prefix string
	level  int
}{
	{"#### ", 4},
	{"### ", 3},
	{"## ", 2},
	{"# ", 1},
}

const (
	quoteMarker = "> "
	listMarker  = "- "
)

// classifyLine reports the single-line block a line opens, if any.
// Markers are only recognised at the very start of the line and must be
// followed by at least one character.
func classifyLine(line string, opts Options) (Block, bool) {
	for _, m := range headerMarkers {
		if rest, ok := strings.CutPrefix(line, m.prefix); ok && rest != "" {
			return Block{Kind: KindHeader, Level: m.level, Text: rest}, true
		}
	}
	if rest, ok := strings.CutPrefix(line, quoteMarker); ok && rest != "" {
		return Block{Kind: KindBlockquote, Text: rest}, true
	}
	if opts.ConvertLists {
		if rest, ok := strings.CutPrefix(line, listMarker); ok && rest != "" {
			return Block{Kind: KindListItem, Text: rest}, true
		}
	}
	return Block{}, false
}

// TransformBlocks rewrites header, blockquote and (optionally) list lines.
// Consecutive list items are grouped into a single-line <ul>. Other lines,
// including table rows, are returned unchanged.
func TransformBlocks(text string, opts Options) string {
	lines := strings.Split(Normalize(text), "\n")
	out := make([]string, 0, len(lines))

	var items []string
	flushList := func() {
		if len(items) == 0 {
			return
		}
		var sb strings.Builder
		sb.WriteString("<ul>")
		for _, it := range items {
			sb.WriteString("<li>")
			sb.WriteString(it)
			sb.WriteString("</li>")
		}
		sb.WriteString("</ul>")
		out = append(out, sb.String())
		items = nil
	}

	for _, line := range lines {
		b, ok := classifyLine(line, opts)
		if ok && b.Kind == KindListItem {
			items = append(items, b.Text)
			continue
		}
		flushList()
		if !ok {
			out = append(out, line)
			continue
		}
		out = append(out, renderBlock(b))
	}
	flushList()

	return strings.Join(out, "\n")
}

func renderBlock(b Block) string {
	switch b.Kind {
	case KindHeader:
		tag := "h" + strconv.Itoa(b.Level)
		return "<" + tag + ">" + b.Text + "</" + tag + ">"
	case KindBlockquote:
		return "<blockquote><p>" + b.Text + "</p></blockquote>"
	}
	return b.Text
}
