package markup

import "regexp"

var (
	boldRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe = regexp.MustCompile(`\*(.+?)\*`)
)

// TransformInline converts bold and italic spans. Every non-overlapping match
// is replaced left to right. Bold runs first so that "**a**" is never split
// into two italic markers. Spans do not cross line boundaries.
func TransformInline(text string) string {
	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	return italicRe.ReplaceAllString(text, "<em>$1</em>")
}
