// Package watch converts Markdown files dropped into an inbox directory.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/grimoire/internal/checksum"
	"github.com/starford/grimoire/internal/convert"
)

// DefaultDebounce is the quiet period after the last write before a file is
// converted. Editors and copy tools emit several events per save.
const DefaultDebounce = 200 * time.Millisecond

// Converter converts a Markdown file on disk.
type Converter interface {
	ConvertFile(ctx context.Context, path string) (*convert.Result, error)
}

// Watch starts an fsnotify watcher on the inbox and converts every created
// or modified .md file until ctx is cancelled.
//
// New directories created at runtime are automatically added to the watch
// list and any .md files already inside them are converted. Content that was
// already converted (same checksum for the same path) is skipped.
func Watch(ctx context.Context, conv Converter, inbox string, debounce time.Duration, logger *slog.Logger) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, inbox); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("inbox", inbox))

	pending := make(map[string]struct{})
	converted := make(map[string]string) // path → checksum of converted content

	// flushTimer debounces bursts of write events.
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	schedule := func(path string) {
		pending[path] = struct{}{}
		if flushTimer == nil {
			flushTimer = time.NewTimer(debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			for _, p := range paths {
				convertIfChanged(ctx, conv, p, converted, logger)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// --- Handle new directories: add to watcher ---
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					for _, p := range markdownFiles(absPath) {
						schedule(p)
					}
					continue
				}
			}

			if !isMarkdown(absPath) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(absPath)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// The new name of a renamed file arrives as a separate Create.
				delete(converted, absPath)
				delete(pending, absPath)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func convertIfChanged(ctx context.Context, conv Converter, path string, converted map[string]string, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Removed or renamed before the debounce fired.
		logger.Debug("watcher: read skipped", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	cs := checksum.Markdown(string(data))
	if converted[path] == cs {
		logger.Debug("watcher: unchanged", slog.String("path", path), slog.String("checksum", checksum.Short(cs)))
		return
	}
	res, err := conv.ConvertFile(ctx, path)
	if err != nil {
		logger.Warn("watcher: convert failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	converted[path] = cs
	logger.Info("watcher: converted",
		slog.String("path", path),
		slog.String("id", res.ID),
		slog.String("html", res.HTML.Location))
}

func isMarkdown(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(strings.ToLower(base), ".md") && !strings.HasPrefix(base, ".")
}

// markdownFiles lists the .md files below dir.
func markdownFiles(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isMarkdown(path) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
