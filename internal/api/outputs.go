package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/grimoire/internal/convert"
)

const maxUploadBytes = 10 << 20 // 10 MB

// OutputHandler serves generated files and accepts Markdown uploads.
type OutputHandler struct {
	svc *convert.Service
	dir string
}

// NewOutputHandler creates a handler serving files from the primary output dir.
func NewOutputHandler(svc *convert.Service, dir string) *OutputHandler {
	if dir != "" {
		dir = filepath.Clean(dir)
	}
	return &OutputHandler{svc: svc, dir: dir}
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal) and returns the absolute path under the output dir.
func (h *OutputHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	abs := filepath.Join(h.dir, cleaned)
	if !strings.HasPrefix(abs, h.dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes output directory")
	}
	return abs, nil
}

// ServeFile handles GET /api/outputs/{filename}.
func (h *OutputHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	if h.dir == "" {
		http.NotFound(w, r)
		return
	}
	abs, err := h.safeName(chi.URLParam(r, "filename"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if info, statErr := os.Stat(abs); statErr != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/convert/upload (multipart/form-data, field "file").
// The uploaded file name becomes the source name.
func (h *OutputHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	res, err := h.svc.Convert(r.Context(), convert.Request{
		Markdown:   string(data),
		SourceName: filepath.Base(header.Filename),
	})
	if err != nil {
		writeError(w, "convert upload", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
