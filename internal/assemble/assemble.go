// Package assemble turns Markdown into a complete themed HTML page.
package assemble

import (
	_ "embed"
	"log/slog"
	"strings"

	"github.com/starford/grimoire/internal/markup"
)

//go:embed theme/page.html
var pageTemplate string

//go:embed theme/theme.css
var themeCSS string

const doctype = "<!DOCTYPE html>"

// StyledDocument is a complete HTML page: the fixed theme with a body in it.
type StyledDocument string

// Option configures an Assembler.
type Option func(*Assembler)

// WithConvertLists enables "- " list item conversion.
func WithConvertLists(enabled bool) Option {
	return func(a *Assembler) {
		a.opts.ConvertLists = enabled
	}
}

// WithLogger sets the logger receiving debug traces. Nil keeps the default,
// which discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// Assembler runs the transform pipeline and applies the theme. It holds no
// mutable state and is safe for concurrent use.
type Assembler struct {
	opts   markup.Options
	logger *slog.Logger
}

// New creates an Assembler.
func New(opts ...Option) *Assembler {
	a := &Assembler{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Options returns the markup options the assembler applies.
func (a *Assembler) Options() markup.Options {
	return a.opts
}

// Body converts Markdown into the folded and wrapped page body.
// Order is fixed: blocks, inline spans, tables, then paragraph folding.
func (a *Assembler) Body(markdown string) string {
	html := markup.Normalize(markdown)
	html = markup.TransformBlocks(html, a.opts)
	html = markup.TransformInline(html)
	html = markup.ConvertTables(html)
	html = fold(html)
	return wrap(html)
}

// Assemble converts Markdown into a StyledDocument. Input that already is a
// styled document comes back unchanged, so Assemble is idempotent.
func (a *Assembler) Assemble(markdown string) StyledDocument {
	if strings.HasPrefix(strings.TrimSpace(markdown), doctype) {
		a.logger.Debug("assemble: input already styled, skipping")
		return StyledDocument(markdown)
	}
	body := a.Body(markdown)
	a.logger.Debug("assemble: rendered",
		slog.Int("markdown_bytes", len(markdown)),
		slog.Int("body_bytes", len(body)))
	return Page(body)
}

// Page substitutes an already rendered body into the theme template.
func Page(body string) StyledDocument {
	r := strings.NewReplacer("{{style}}", themeCSS, "{{body}}", body)
	return StyledDocument(r.Replace(pageTemplate))
}

// Theme returns the static stylesheet used by every page.
func Theme() string {
	return themeCSS
}

// wrap puts the body in a single paragraph unless it already has a top-level
// heading, a raw HTML block, or an outer paragraph.
func wrap(body string) string {
	if strings.Contains(body, "<h1>") || strings.Contains(body, "<div") {
		return body
	}
	if isWrapped(body) {
		return body
	}
	return "<p>" + body + "</p>"
}

// isWrapped reports whether body already sits between an outer paragraph
// pair, as produced by an earlier wrap. Literal paragraph tags inside the
// text do not matter.
func isWrapped(body string) bool {
	return strings.HasPrefix(body, "<p>") && strings.HasSuffix(body, "</p>")
}
