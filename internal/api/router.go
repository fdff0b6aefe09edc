package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/grimoire/internal/convert"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// outputDir is the primary output directory served under /outputs.
func NewRouter(svc *convert.Service, authEnabled bool, token string, sseHandler http.Handler, outputDir string) chi.Router {
	h := NewHandler(svc)
	oh := NewOutputHandler(svc, outputDir)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Conversion.
	r.Post("/convert", h.Convert)
	r.Post("/convert/upload", oh.Upload)
	r.Post("/render", h.Render)
	r.Post("/outline", h.Outline)
	r.Post("/resolve", h.Resolve)

	// History.
	r.Get("/conversions", h.ListConversions)
	r.Get("/conversions/{id}", h.GetConversion)
	r.Get("/search", h.Search)

	// Generated files.
	r.Get("/outputs/{filename}", oh.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
