// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Grimoire conversion tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/grimoire/internal/assemble"
	"github.com/starford/grimoire/internal/convert"
	"github.com/starford/grimoire/internal/vault"
)

const (
	themeURI = "grimoire://theme.css"
	guideURI = "grimoire://markup-guide"
)

// Server wraps the MCP server with Grimoire tools.
type Server struct {
	mcp       *server.MCPServer
	svc       *convert.Service
	hostCheck func(host string) error
}

// New creates a new MCP server with all Grimoire tools registered.
func New(svc *convert.Service) *Server {
	s := &Server{svc: svc, hostCheck: checkBlockedHost}

	s.mcp = server.NewMCPServer(
		"Grimoire",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("convert_markdown",
		mcp.WithDescription("Convert Markdown text into a themed HTML page (and PDF when a rasterizer is configured). "+
			"Only the subset described by the grimoire://markup-guide resource is rendered."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown source text")),
		mcp.WithString("source_name", mcp.Description("Optional source file name used to name the outputs")),
	), s.convertMarkdown)

	s.mcp.AddTool(mcp.NewTool("render_markdown",
		mcp.WithDescription("Render Markdown into the themed HTML page and return it without saving anything."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown source text")),
	), s.renderMarkdown)

	s.mcp.AddTool(mcp.NewTool("convert_vault_note",
		mcp.WithDescription("Find the note a vault URL points at (e.g. obsidian://open?vault=V&file=Notes%2FSession%201) "+
			"in the configured vault and convert it."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Vault URL containing a file= query value or a path")),
	), s.convertVaultNote)

	s.mcp.AddTool(mcp.NewTool("convert_url",
		mcp.WithDescription("Download a Markdown document over http(s) and convert it."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http or https URL of a Markdown file")),
		mcp.WithString("source_name", mcp.Description("Optional source name; defaults to the URL file name")),
	), s.convertURL)

	s.mcp.AddTool(mcp.NewTool("extract_hint",
		mcp.WithDescription("Return the note file name a vault URL refers to, without searching the vault."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Vault URL")),
	), s.extractHint)

	s.mcp.AddTool(mcp.NewTool("outline_markdown",
		mcp.WithDescription("Classify Markdown into headers, blockquotes, list items, tables and paragraphs."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown source text")),
	), s.outlineMarkdown)

	s.mcp.AddTool(mcp.NewTool("list_conversions",
		mcp.WithDescription("List recorded conversions, newest first."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 20)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listConversions)

	s.mcp.AddTool(mcp.NewTool("search_conversions",
		mcp.WithDescription("Full-text search through converted documents."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchConversions)

	s.mcp.AddResource(
		mcp.NewResource(themeURI, "Page Theme",
			mcp.WithResourceDescription("Stylesheet embedded in every generated page."),
			mcp.WithMIMEType("text/css"),
		),
		s.readThemeResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Markup Guide",
			mcp.WithResourceDescription("The Markdown subset the converter understands."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) convertMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markdown, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Convert(ctx, convert.Request{
		Markdown:   markdown,
		SourceName: req.GetString("source_name", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) renderMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markdown, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(s.svc.Render(ctx, markdown))), nil
}

func (s *Server) convertVaultNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ResolveURL(ctx, rawURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) extractHint(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hint, err := vault.ExtractHint(rawURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(hint), nil
}

func (s *Server) outlineMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markdown, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.Outline(ctx, markdown)), nil
}

func (s *Server) listConversions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.List(ctx, req.GetInt("limit", 20), req.GetInt("offset", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"conversions": items,
		"total":       total,
	}), nil
}

func (s *Server) searchConversions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readThemeResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      themeURI,
			MIMEType: "text/css",
			Text:     assemble.Theme(),
		},
	}, nil
}

func (s *Server) readGuideResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     MarkupGuide,
		},
	}, nil
}
