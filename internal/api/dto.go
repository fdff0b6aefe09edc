package api

import (
	"github.com/starford/grimoire/internal/convert"
	"github.com/starford/grimoire/internal/index"
	"github.com/starford/grimoire/internal/markup"
)

// ConvertRequest is the request body for converting shared text.
type ConvertRequest struct {
	Markdown   string `json:"markdown" example:"# Session 1\nThe party met." validate:"required"`
	SourceName string `json:"source_name,omitempty" example:"Session 1.md"`
}

// RenderRequest is the request body for a preview render.
type RenderRequest struct {
	Markdown string `json:"markdown" example:"**Fireball** 8d6" validate:"required"`
}

// ResolveRequest is the request body for converting a vault note by URL.
type ResolveRequest struct {
	URL string `json:"url" example:"obsidian://open?vault=Campaign&file=Notes%2FSession%201" validate:"required"`
}

// Conversion is the conversion response type (aliased from the domain layer).
type Conversion = convert.Result

// ConversionListResponse wraps paginated conversion listings.
type ConversionListResponse struct {
	Conversions []Conversion `json:"conversions" validate:"required"`
	Total       int          `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit (aliased from the index).
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// OutlineResponse lists the classified blocks of a document.
type OutlineResponse struct {
	Blocks []markup.Block `json:"blocks" validate:"required"`
}
