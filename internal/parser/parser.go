// Package parser splits note frontmatter from the Markdown body and derives
// a display title.
package parser

import (
	"bytes"
	"strings"

	"github.com/adrg/frontmatter"
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
}

// Parse separates frontmatter (YAML, TOML or JSON) from the body. Content
// without frontmatter, or with a block that does not parse or holds no keys,
// is returned whole as the body.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
	}
}

func splitFrontmatter(data []byte) (map[string]any, string) {
	var fm map[string]any
	rest, err := frontmatter.Parse(bytes.NewReader(data), &fm)
	if err != nil {
		// Invalid frontmatter: keep everything as body.
		return nil, string(data)
	}
	if len(fm) == 0 {
		// A delimited block with no keys is Markdown that YAML read as
		// comments, such as a lone "# Heading" between rules.
		return nil, string(data)
	}
	return fm, strings.TrimLeft(string(rest), "\r\n")
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if t, ok := fm["title"].(string); ok && t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
