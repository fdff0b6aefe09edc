package vault

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
)

// MemTree is an in-memory Tree built from slash-separated file paths.
// Folders are implied by the paths. It is not safe for concurrent mutation.
type MemTree struct {
	files    map[string][]byte
	dirs     map[string]struct{}
	readErrs map[string]error
}

// NewMemTree builds a tree from path → content pairs.
func NewMemTree(files map[string]string) *MemTree {
	m := &MemTree{
		files:    make(map[string][]byte, len(files)),
		dirs:     map[string]struct{}{"": {}},
		readErrs: make(map[string]error),
	}
	for p, content := range files {
		m.Add(p, content)
	}
	return m
}

// Add inserts or replaces a file, creating its parent folders.
func (m *MemTree) Add(p, content string) {
	p = strings.Trim(path.Clean("/"+p), "/")
	m.files[p] = []byte(content)
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		m.dirs[dir] = struct{}{}
	}
}

// FailRead makes every read of p return err.
func (m *MemTree) FailRead(p string, err error) {
	m.readErrs[p] = err
}

// Root returns the root folder entry.
func (m *MemTree) Root() Entry {
	return Entry{Name: "", IsDir: true}
}

// List returns the direct children of dir sorted by name.
func (m *MemTree) List(ctx context.Context, dir Entry) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := m.dirs[dir.Handle]; !ok {
		return nil, fmt.Errorf("vault: list %s: %w", dir.Handle, os.ErrNotExist)
	}
	var out []Entry
	for d := range m.dirs {
		if d != "" && parent(d) == dir.Handle {
			out = append(out, Entry{Name: path.Base(d), IsDir: true, Handle: d})
		}
	}
	for f := range m.files {
		if parent(f) == dir.Handle {
			out = append(out, Entry{Name: path.Base(f), Handle: f})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read returns a file's content.
func (m *MemTree) Read(ctx context.Context, e Entry) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.readErrs[e.Handle]; ok {
		return nil, err
	}
	data, ok := m.files[e.Handle]
	if !ok {
		return nil, fmt.Errorf("vault: read %s: %w", e.Handle, os.ErrNotExist)
	}
	return data, nil
}

func parent(p string) string {
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}
