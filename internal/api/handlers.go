package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/grimoire/internal/convert"
	"github.com/starford/grimoire/internal/markup"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *convert.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *convert.Service) *Handler {
	return &Handler{svc: svc}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// Convert handles POST /api/convert.
//
//	@Summary		Convert shared Markdown text into themed HTML (and PDF)
//	@Tags			conversions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConvertRequest	true	"Markdown to convert"
//	@Success		201		{object}	Conversion
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert [post]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Markdown) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("markdown is required"))
		return
	}
	res, err := h.svc.Convert(r.Context(), convert.Request{Markdown: req.Markdown, SourceName: req.SourceName})
	if err != nil {
		writeError(w, "convert", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Render handles POST /api/render. The styled page is returned directly and
// nothing is persisted.
//
//	@Summary		Preview the themed HTML page for Markdown
//	@Tags			conversions
//	@Accept			json
//	@Produce		html
//	@Param			body	body		RenderRequest	true	"Markdown to render"
//	@Success		200		{string}	string
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render [post]
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc := h.svc.Render(r.Context(), req.Markdown)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// Outline handles POST /api/outline.
//
//	@Summary		Classify Markdown into blocks
//	@Tags			conversions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenderRequest	true	"Markdown to classify"
//	@Success		200		{object}	OutlineResponse
//	@Security		BearerAuth
//	@Router			/outline [post]
func (h *Handler) Outline(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	blocks := h.svc.Outline(r.Context(), req.Markdown)
	if blocks == nil {
		blocks = []markup.Block{}
	}
	writeJSON(w, http.StatusOK, OutlineResponse{Blocks: blocks})
}

// Resolve handles POST /api/resolve.
//
//	@Summary		Resolve a vault URL to a note and convert it
//	@Tags			conversions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ResolveRequest	true	"Vault URL"
//	@Success		201		{object}	Conversion
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [post]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	res, err := h.svc.ResolveURL(r.Context(), req.URL)
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ListConversions handles GET /api/conversions.
//
//	@Summary		List recorded conversions, newest first
//	@Tags			conversions
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	ConversionListResponse
//	@Security		BearerAuth
//	@Router			/conversions [get]
func (h *Handler) ListConversions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, "list conversions", err)
		return
	}
	writeJSON(w, http.StatusOK, ConversionListResponse{Conversions: items, Total: total})
}

// GetConversion handles GET /api/conversions/{id}.
//
//	@Summary		Get a single conversion
//	@Tags			conversions
//	@Produce		json
//	@Param			id	path		string	true	"Conversion ID"
//	@Success		200	{object}	Conversion
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/conversions/{id} [get]
func (h *Handler) GetConversion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get conversion", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across converted documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
