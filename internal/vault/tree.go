// Package vault locates notes inside a folder tree from a filename hint.
package vault

import "context"

// Entry is a file or folder inside a Tree. Handle is owned by the Tree and
// opaque to everything else.
type Entry struct {
	Name   string `json:"name"`
	IsDir  bool   `json:"is_dir"`
	Handle string `json:"handle"`
}

// Tree is read-only access to a rooted folder hierarchy. Implementations
// must describe an acyclic tree; the resolver does not guard against cycles.
type Tree interface {
	// Root returns the entry for the top-level folder.
	Root() Entry
	// List returns the direct children of dir.
	List(ctx context.Context, dir Entry) ([]Entry, error)
	// Read returns the full content of a file entry.
	Read(ctx context.Context, e Entry) ([]byte, error)
}

// ConcurrentReader is implemented by trees that allow several resolvers to
// read at the same time. Trees without it are treated as single-reader.
type ConcurrentReader interface {
	ConcurrentReads() bool
}
