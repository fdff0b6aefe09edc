package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/starford/grimoire/internal/apperr"
)

const mdExt = ".md"

// NotFoundError is returned when no candidate name exists anywhere in the
// tree. It matches apperr.ErrEntryNotFound with errors.Is.
type NotFoundError struct {
	Hint        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("vault: no note matches %q", e.Hint)
	if len(e.Suggestions) > 0 {
		msg += " (did you mean: " + strings.Join(e.Suggestions, ", ") + ")"
	}
	return msg
}

// Is reports whether target is apperr.ErrEntryNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == apperr.ErrEntryNotFound
}

// Note is a resolved vault entry with its content.
type Note struct {
	Hint    string
	Entry   Entry
	Content []byte
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for traversal traces.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSuggestions makes not-found errors carry up to limit fuzzy matches
// from the whole tree. Zero disables suggestions.
func WithSuggestions(limit int) Option {
	return func(r *Resolver) {
		r.suggest = limit
	}
}

// Resolver finds notes in a Tree. Calls are serialised unless the tree
// implements ConcurrentReader and reports true.
type Resolver struct {
	tree    Tree
	logger  *slog.Logger
	suggest int
	serial  bool
	mu      sync.Mutex
}

// NewResolver creates a Resolver over tree.
func NewResolver(tree Tree, opts ...Option) *Resolver {
	r := &Resolver{
		tree:   tree,
		logger: slog.New(slog.DiscardHandler),
		serial: true,
	}
	if cr, ok := tree.(ConcurrentReader); ok && cr.ConcurrentReads() {
		r.serial = false
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Candidates returns the names tried for a hint, in order:
// hint.md, hint, base(hint), base(hint).md. Duplicates are dropped.
func Candidates(hint string) []string {
	hint = strings.Trim(hint, "/")
	base := hint
	if i := strings.LastIndex(hint, "/"); i >= 0 {
		base = hint[i+1:]
	}
	raw := []string{hint + mdExt, hint, base, base + mdExt}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if c == "" || c == mdExt {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// FindEntry searches the tree for the first candidate name derived from
// hint. Each candidate is looked up at the root and then depth-first in
// every subfolder before the next candidate is tried. Candidates with a
// slash are matched as a relative path from each folder.
func (r *Resolver) FindEntry(ctx context.Context, hint string) (Entry, error) {
	if r.serial {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	return r.findEntry(ctx, hint)
}

func (r *Resolver) findEntry(ctx context.Context, hint string) (Entry, error) {
	cands := Candidates(hint)
	if len(cands) == 0 {
		return Entry{}, fmt.Errorf("vault: empty hint: %w", apperr.ErrHintNotFound)
	}

	root := r.tree.Root()
	if _, err := r.tree.List(ctx, root); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Entry{}, ctxErr
		}
		return Entry{}, fmt.Errorf("vault: list root: %w: %w", apperr.ErrReadFailure, err)
	}

	for _, c := range cands {
		e, ok, err := r.search(ctx, root, strings.Split(c, "/"))
		if err != nil {
			return Entry{}, err
		}
		if ok {
			r.logger.Debug("vault: entry found",
				slog.String("hint", hint),
				slog.String("candidate", c),
				slog.String("handle", e.Handle))
			return e, nil
		}
		r.logger.Debug("vault: candidate missed", slog.String("candidate", c))
	}

	return Entry{}, &NotFoundError{Hint: hint, Suggestions: r.suggestions(ctx, hint)}
}

// search looks for segs below dir, then recurses into every subfolder.
func (r *Resolver) search(ctx context.Context, dir Entry, segs []string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	children, err := r.tree.List(ctx, dir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Entry{}, false, ctxErr
		}
		r.logger.Warn("vault: list failed, skipping folder",
			slog.String("handle", dir.Handle),
			slog.String("error", err.Error()))
		return Entry{}, false, nil
	}

	if e, ok := r.lookup(ctx, children, segs); ok {
		return e, true, nil
	}

	for _, child := range children {
		if !child.IsDir {
			continue
		}
		e, ok, err := r.search(ctx, child, segs)
		if err != nil || ok {
			return e, ok, err
		}
	}
	return Entry{}, false, nil
}

// lookup walks segs through children: every segment but the last must be a
// folder, the last one a file.
func (r *Resolver) lookup(ctx context.Context, children []Entry, segs []string) (Entry, bool) {
	for i, seg := range segs {
		last := i == len(segs)-1
		var next *Entry
		for j := range children {
			if children[j].Name == seg && children[j].IsDir != last {
				next = &children[j]
				break
			}
		}
		if next == nil {
			return Entry{}, false
		}
		if last {
			return *next, true
		}
		var err error
		children, err = r.tree.List(ctx, *next)
		if err != nil {
			return Entry{}, false
		}
	}
	return Entry{}, false
}

// Resolve finds the note for hint and reads its full content.
func (r *Resolver) Resolve(ctx context.Context, hint string) (*Note, error) {
	if r.serial {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	e, err := r.findEntry(ctx, hint)
	if err != nil {
		return nil, err
	}
	data, err := r.tree.Read(ctx, e)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("vault: read %s: %w: %w", e.Handle, apperr.ErrReadFailure, err)
	}
	return &Note{Hint: hint, Entry: e, Content: data}, nil
}

// ResolveURL extracts the hint from rawURL and resolves it.
func (r *Resolver) ResolveURL(ctx context.Context, rawURL string) (*Note, error) {
	hint, err := ExtractHint(rawURL)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, hint)
}

// suggestions ranks every note name in the tree against the hint's base
// name. Errors during the walk only shorten the list.
func (r *Resolver) suggestions(ctx context.Context, hint string) []string {
	if r.suggest <= 0 {
		return nil
	}
	var names []string
	var walk func(dir Entry)
	walk = func(dir Entry) {
		children, err := r.tree.List(ctx, dir)
		if err != nil {
			return
		}
		for _, c := range children {
			if c.IsDir {
				walk(c)
				continue
			}
			names = append(names, c.Name)
		}
	}
	walk(r.tree.Root())

	pattern := strings.TrimSuffix(path.Base(strings.Trim(hint, "/")), mdExt)
	matches := fuzzy.Find(pattern, names)
	out := make([]string, 0, min(len(matches), r.suggest))
	for _, m := range matches {
		if len(out) == r.suggest {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

// IsNotFound reports whether err means the hint or the entry was missing,
// as opposed to a read failure.
func IsNotFound(err error) bool {
	return errors.Is(err, apperr.ErrEntryNotFound) || errors.Is(err, apperr.ErrHintNotFound)
}
