// Package output persists generated documents through an ordered list of
// sinks and drives an external PDF rasterizer.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrAllSinksFailed is returned by Chain.Save when no sink accepted the file.
var ErrAllSinksFailed = errors.New("output: all sinks failed")

// Sink stores a named file and returns where it ended up.
type Sink interface {
	Name() string
	Save(ctx context.Context, name string, data []byte) (location string, err error)
}

// DirSink writes files into a local directory.
type DirSink struct {
	dir string // absolute path
}

// NewDirSink creates a sink for dir. The directory is created on first save.
func NewDirSink(dir string) (*DirSink, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("output: resolve dir: %w", err)
	}
	return &DirSink{dir: abs}, nil
}

// Name returns the sink's directory.
func (d *DirSink) Name() string {
	return "dir:" + d.dir
}

// Save atomically writes data: tmp file → fsync → rename.
func (d *DirSink) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("output: invalid file name: %q", name)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("output: mkdir: %w", err)
	}
	abs := filepath.Join(d.dir, name)

	tmp, err := os.CreateTemp(d.dir, ".grimoire-tmp-*")
	if err != nil {
		return "", fmt.Errorf("output: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("output: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("output: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("output: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("output: chmod: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("output: rename: %w", err)
	}
	success = true
	return abs, nil
}

var _ Sink = (*Chain)(nil)

// Chain tries each sink in order until one succeeds.
type Chain struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewChain creates a chain over sinks. A nil logger discards.
func NewChain(logger *slog.Logger, sinks ...Sink) *Chain {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Chain{sinks: sinks, logger: logger}
}

// Name lists the chained sinks.
func (c *Chain) Name() string {
	names := make([]string, len(c.sinks))
	for i, s := range c.sinks {
		names[i] = s.Name()
	}
	return "chain[" + strings.Join(names, ",") + "]"
}

// Save stores data in the first sink that accepts it. When every sink fails
// the returned error wraps ErrAllSinksFailed and each sink's error.
func (c *Chain) Save(ctx context.Context, name string, data []byte) (string, error) {
	errs := []error{ErrAllSinksFailed}
	for _, s := range c.sinks {
		loc, err := s.Save(ctx, name, data)
		if err == nil {
			c.logger.Debug("output: saved", slog.String("sink", s.Name()), slog.String("location", loc))
			return loc, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		c.logger.Warn("output: sink failed, trying next",
			slog.String("sink", s.Name()),
			slog.String("name", name),
			slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return "", errors.Join(errs...)
}
