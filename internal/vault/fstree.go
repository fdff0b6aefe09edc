package vault

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FSTree implements Tree backed by a directory on the local file system.
// Handles are slash-separated paths relative to the root.
type FSTree struct {
	root string // absolute path to vault directory
}

// NewFSTree creates a tree rooted at the given directory.
// The directory must already exist.
func NewFSTree(root string) (*FSTree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	return &FSTree{root: abs}, nil
}

// Root returns the root folder entry.
func (f *FSTree) Root() Entry {
	return Entry{Name: filepath.Base(f.root), IsDir: true}
}

// ConcurrentReads reports that the local file system tolerates parallel readers.
func (f *FSTree) ConcurrentReads() bool {
	return true
}

// safePath resolves a handle against the root and rejects any result that
// escapes it.
func (f *FSTree) safePath(handle string) (string, error) {
	if handle == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(handle))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("vault: absolute paths not allowed: %s", handle)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("vault: path escapes vault root: %s", handle)
	}
	return abs, nil
}

// List returns the children of dir sorted by name.
func (f *FSTree) List(ctx context.Context, dir Entry) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := f.safePath(dir.Handle)
	if err != nil {
		return nil, err
	}
	des, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: list %s: %w", dir.Handle, err)
	}
	out := make([]Entry, 0, len(des))
	for _, d := range des {
		out = append(out, Entry{
			Name:   d.Name(),
			IsDir:  d.IsDir(),
			Handle: path.Join(dir.Handle, d.Name()),
		})
	}
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FSTree) Read(ctx context.Context, e Entry) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := f.safePath(e.Handle)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: read %s: %w", e.Handle, err)
	}
	return data, nil
}
