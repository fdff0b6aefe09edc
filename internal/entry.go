// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/grimoire/internal/api"
	"github.com/starford/grimoire/internal/convert"
	"github.com/starford/grimoire/internal/mcpserver"
	"github.com/starford/grimoire/internal/sse"
	"github.com/starford/grimoire/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Run starts the HTTP server and, when an inbox is configured, the inbox
// watcher. It blocks until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.Any("output_dirs", cfg.Output.Dirs),
		slog.Bool("pdf_enabled", cfg.PDF.Enabled()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("watch_inbox", cfg.Watch.Inbox),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	comps, err := buildComponents(cfg, logger, broker.PublishConversionEvent)
	if err != nil {
		return err
	}
	defer comps.Close()

	logger.Info("Output chain ready", slog.String("outputs", comps.outputs.Name()))

	apiRouter := api.NewRouter(comps.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Output.Primary())

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", healthOK)
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := comps.db.PingContext(req.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		healthOK(w, req)
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start inbox watcher.
	if cfg.Watch.Inbox != "" {
		if err := os.MkdirAll(cfg.Watch.Inbox, 0o755); err != nil {
			return fmt.Errorf("create inbox dir: %w", err)
		}
		g.Go(func() error {
			if err := watch.Watch(gCtx, comps.svc, cfg.Watch.Inbox, cfg.Watch.Debounce, logger); err != nil {
				return fmt.Errorf("watcher error: %w", err)
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

func healthOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// ConvertFiles converts Markdown files in order through one set of
// components. It stops at the first failure and returns the results
// produced before it.
func ConvertFiles(ctx context.Context, paths []string, opts ...Option) ([]*convert.Result, error) {
	return withService(opts, func(svc *convert.Service) ([]*convert.Result, error) {
		results := make([]*convert.Result, 0, len(paths))
		for _, path := range paths {
			res, err := svc.ConvertFile(ctx, path)
			if err != nil {
				return results, err
			}
			results = append(results, res)
		}
		return results, nil
	})
}

// ResolveURL finds the vault note a URL points at and converts it.
func ResolveURL(ctx context.Context, rawURL string, opts ...Option) (*convert.Result, error) {
	return withService(opts, func(svc *convert.Service) (*convert.Result, error) {
		return svc.ResolveURL(ctx, rawURL)
	})
}

func withService[T any](opts []Option, fn func(*convert.Service) (T, error)) (T, error) {
	var zero T
	app, err := newApplication(opts)
	if err != nil {
		return zero, err
	}
	logger := app.newLogger()

	comps, err := buildComponents(app.config, logger, nil)
	if err != nil {
		return zero, err
	}
	defer comps.Close()

	return fn(comps.svc)
}

// ServeMCP serves the conversion tools over stdio until the client
// disconnects. Logs go to stderr unless WithLogOutput says otherwise.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.newLogger()
	slog.SetDefault(logger)

	comps, err := buildComponents(app.config, logger, nil)
	if err != nil {
		return err
	}
	defer comps.Close()

	logger.Info("MCP server starting", slog.String("transport", "stdio"))
	return mcpserver.New(comps.svc).ServeStdio()
}
