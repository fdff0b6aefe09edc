// Package convert orchestrates Markdown conversion: frontmatter split,
// themed assembly, output naming, persistence through the sink chain,
// optional PDF rasterizing, history and change events.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/grimoire/internal/apperr"
	"github.com/starford/grimoire/internal/assemble"
	"github.com/starford/grimoire/internal/checksum"
	"github.com/starford/grimoire/internal/index"
	"github.com/starford/grimoire/internal/markup"
	"github.com/starford/grimoire/internal/outname"
	"github.com/starford/grimoire/internal/output"
	"github.com/starford/grimoire/internal/parser"
	"github.com/starford/grimoire/internal/vault"
)

// Event kinds passed to an EventCallback.
const (
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// EventCallback is called after every conversion attempt.
type EventCallback func(kind string, ev Event)

// Event describes a finished or failed conversion.
type Event struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Error  string `json:"error,omitempty"`
}

// Request is the input of a conversion.
type Request struct {
	Markdown   string
	SourceName string
	// Hint is the vault hint the markdown was resolved from, if any.
	Hint string
}

// Artifact is one generated file.
type Artifact struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Result is the full representation of a conversion.
type Result struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Title    string    `json:"title"`
	Hint     string    `json:"hint,omitempty"`
	Checksum string    `json:"checksum"`
	HTML     Artifact  `json:"html"`
	PDF      *Artifact `json:"pdf,omitempty"`
	PDFError string    `json:"pdf_error,omitempty"`
	// PreviousID is the newest earlier conversion of identical content.
	PreviousID string    `json:"previous_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Option configures a Service.
type Option func(*Service)

// WithResolver enables vault lookups.
func WithResolver(r *vault.Resolver) Option {
	return func(s *Service) { s.resolver = r }
}

// WithHistory records conversions in h.
func WithHistory(h index.History) Option {
	return func(s *Service) { s.history = h }
}

// WithRasterizer enables PDF output.
func WithRasterizer(r output.Rasterizer) Option {
	return func(s *Service) { s.rasterizer = r }
}

// WithClock replaces time.Now for timestamps.
func WithClock(c outname.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithFallbackName sets the file stem used when a request has no source name.
func WithFallbackName(name string) Option {
	return func(s *Service) { s.fallback = name }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEvents registers cb for conversion events.
func WithEvents(cb EventCallback) Option {
	return func(s *Service) { s.events = cb }
}

// Service coordinates the assembler, output sinks and history.
type Service struct {
	asm        *assemble.Assembler
	sink       output.Sink
	resolver   *vault.Resolver
	history    index.History
	rasterizer output.Rasterizer
	clock      outname.Clock
	fallback   string
	logger     *slog.Logger
	events     EventCallback
	newID      func() string
}

// NewService creates a conversion service writing through sink.
func NewService(asm *assemble.Assembler, sink output.Sink, opts ...Option) *Service {
	s := &Service{
		asm:      asm,
		sink:     sink,
		clock:    time.Now,
		fallback: outname.FallbackBase,
		logger:   slog.New(slog.DiscardHandler),
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Render assembles markdown into a styled page without persisting anything.
func (s *Service) Render(_ context.Context, markdown string) assemble.StyledDocument {
	res := parser.Parse([]byte(markdown))
	return s.asm.Assemble(res.Body)
}

// Convert renders the request, saves the HTML page (and the PDF when a
// rasterizer is configured) and records the conversion. A PDF failure does
// not fail the conversion; it is reported in Result.PDFError.
func (s *Service) Convert(ctx context.Context, req Request) (*Result, error) {
	res, err := s.convert(ctx, req)
	if err != nil {
		s.emit(EventFailed, Event{Source: req.SourceName, Error: err.Error()})
		return nil, err
	}
	s.emit(EventCompleted, Event{ID: res.ID, Source: res.Source})
	return res, nil
}

func (s *Service) convert(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Markdown) == "" {
		return nil, fmt.Errorf("convert: empty markdown: %w", apperr.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed := parser.Parse([]byte(req.Markdown))
	doc := s.asm.Assemble(parsed.Body)

	now := s.clock()
	ts := outname.Timestamp(now)
	res := &Result{
		ID:        s.newID(),
		Source:    req.SourceName,
		Title:     parsed.Title,
		Hint:      req.Hint,
		Checksum:  checksum.Markdown(req.Markdown),
		CreatedAt: now,
	}
	if res.Title == "" {
		res.Title = outname.Stem(req.SourceName)
	}

	htmlName := outname.DeriveNameWithFallback(req.SourceName, s.fallback, "html", ts)
	loc, err := s.sink.Save(ctx, htmlName, []byte(doc))
	if err != nil {
		return nil, fmt.Errorf("convert: save html: %w", err)
	}
	res.HTML = Artifact{Name: htmlName, Location: loc}

	if s.rasterizer != nil {
		if pdf, err := s.savePDF(ctx, doc, req.SourceName, ts); err != nil {
			s.logger.Warn("convert: pdf failed",
				slog.String("source", req.SourceName),
				slog.String("error", err.Error()))
			res.PDFError = err.Error()
		} else {
			res.PDF = pdf
		}
	}

	if s.history != nil {
		if prev, err := s.history.LatestByChecksum(res.Checksum); err != nil {
			s.logger.Warn("convert: checksum lookup failed", slog.String("error", err.Error()))
		} else if prev != nil {
			res.PreviousID = prev.ID
		}
		row := toRow(res)
		if err := s.history.Record(row, parsed.Body); err != nil {
			s.logger.Warn("convert: record history failed",
				slog.String("id", res.ID),
				slog.String("error", err.Error()))
		}
	}

	s.logger.Info("convert: done",
		slog.String("id", res.ID),
		slog.String("source", res.Source),
		slog.String("html", res.HTML.Location))
	return res, nil
}

func (s *Service) savePDF(ctx context.Context, doc assemble.StyledDocument, source, ts string) (*Artifact, error) {
	data, err := s.rasterizer.Rasterize(ctx, []byte(doc))
	if err != nil {
		return nil, err
	}
	name := outname.DeriveNameWithFallback(source, s.fallback, "pdf", ts)
	loc, err := s.sink.Save(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("convert: save pdf: %w", err)
	}
	return &Artifact{Name: name, Location: loc}, nil
}

// Outline classifies the Markdown body into blocks without rendering it.
func (s *Service) Outline(_ context.Context, markdown string) []markup.Block {
	res := parser.Parse([]byte(markdown))
	return markup.Classify(res.Body, s.asm.Options())
}

// ConvertFile reads a Markdown file from disk and converts it, using the
// file's base name as source name.
func (s *Service) ConvertFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("convert: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("convert: read %s: %w: %w", path, apperr.ErrReadFailure, err)
	}
	return s.Convert(ctx, Request{Markdown: string(data), SourceName: filepath.Base(path)})
}

// ResolveURL finds the note a vault URL points at and converts it.
func (s *Service) ResolveURL(ctx context.Context, rawURL string) (*Result, error) {
	if s.resolver == nil {
		return nil, fmt.Errorf("convert: no vault configured: %w", apperr.ErrInvalidInput)
	}
	note, err := s.resolver.ResolveURL(ctx, rawURL)
	if err != nil {
		s.emit(EventFailed, Event{Source: rawURL, Error: err.Error()})
		return nil, err
	}
	return s.Convert(ctx, Request{
		Markdown:   string(note.Content),
		SourceName: note.Entry.Name,
		Hint:       note.Hint,
	})
}

// List returns recorded conversions, newest first, and the total count.
func (s *Service) List(_ context.Context, limit, offset int) ([]Result, int, error) {
	if s.history == nil {
		return []Result{}, 0, nil
	}
	rows, total, err := s.history.List(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Result, len(rows))
	for i, r := range rows {
		out[i] = *fromRow(r)
	}
	return out, total, nil
}

// Get returns one recorded conversion.
func (s *Service) Get(_ context.Context, id string) (*Result, error) {
	if s.history == nil {
		return nil, apperr.ErrNotFound
	}
	row, err := s.history.Get(id)
	if err != nil {
		return nil, err
	}
	return fromRow(*row), nil
}

// Search delegates full-text search over converted documents to the history.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("convert: empty query: %w", apperr.ErrInvalidInput)
	}
	if s.history == nil {
		return []index.SearchResult{}, nil
	}
	return s.history.Search(query, limit)
}

func (s *Service) emit(kind string, ev Event) {
	if s.events != nil {
		s.events(kind, ev)
	}
}

func toRow(r *Result) index.ConversionRow {
	row := index.ConversionRow{
		ID:           r.ID,
		Source:       r.Source,
		Title:        r.Title,
		Hint:         r.Hint,
		Checksum:     r.Checksum,
		HTMLName:     r.HTML.Name,
		HTMLLocation: r.HTML.Location,
		CreatedAt:    r.CreatedAt,
	}
	if r.PDF != nil {
		row.PDFName = r.PDF.Name
		row.PDFLocation = r.PDF.Location
	}
	return row
}

func fromRow(row index.ConversionRow) *Result {
	r := &Result{
		ID:        row.ID,
		Source:    row.Source,
		Title:     row.Title,
		Hint:      row.Hint,
		Checksum:  row.Checksum,
		HTML:      Artifact{Name: row.HTMLName, Location: row.HTMLLocation},
		CreatedAt: row.CreatedAt,
	}
	if row.PDFName != "" {
		r.PDF = &Artifact{Name: row.PDFName, Location: row.PDFLocation}
	}
	return r
}
