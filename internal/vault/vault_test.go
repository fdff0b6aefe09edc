package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/grimoire/internal/apperr"
)

func TestExtractHint(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"obsidian vault and file", "obsidian://open?vault=MyVault&file=Notes%2FSession%201", "Notes/Session 1"},
		{"file only", "obsidian://open?file=Dragon%20Lair", "Dragon Lair"},
		{"file before vault", "obsidian://open?file=Map&vault=V", "Map"},
		{"lowercase slash escape", "obsidian://open?vault=V&file=a%2fb", "a/b"},
		{"other escapes kept", "obsidian://open?file=Loot%26Gold", "Loot%26Gold"},
		{"fragment ignored", "obsidian://open?file=Inn#heading", "Inn"},
		{"path tail", "https://example.com/notes/Session%201.md", "Session 1.md"},
		{"path tail trailing slash", "https://example.com/notes/Keep/", "Keep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractHint(tt.url)
			if err != nil {
				t.Fatalf("ExtractHint: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractHint(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractHint_NotFound(t *testing.T) {
	for _, u := range []string{"", "obsidian://open?vault=MyVault", "just-text", "https://example.com/", "obsidian://open?profile=x"} {
		if _, err := ExtractHint(u); !errors.Is(err, apperr.ErrHintNotFound) {
			t.Errorf("ExtractHint(%q) error = %v, want ErrHintNotFound", u, err)
		}
	}
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		hint string
		want []string
	}{
		{"Notes/Session 1", []string{"Notes/Session 1.md", "Notes/Session 1", "Session 1", "Session 1.md"}},
		{"Inn", []string{"Inn.md", "Inn"}},
		{"Inn.md", []string{"Inn.md.md", "Inn.md"}},
		{"", nil},
		{"/", nil},
	}
	for _, tt := range tests {
		got := Candidates(tt.hint)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Candidates(%q) = %q, want %q", tt.hint, got, tt.want)
		}
	}
}

func findHandle(t *testing.T, tree Tree, hint string) string {
	t.Helper()
	e, err := NewResolver(tree).FindEntry(context.Background(), hint)
	if err != nil {
		t.Fatalf("FindEntry(%q): %v", hint, err)
	}
	return e.Handle
}

func TestFindEntry_NestedViaMdCandidate(t *testing.T) {
	tree := NewMemTree(map[string]string{
		"subdir/Session 1.md": "# Session 1\nThe party met.",
	})
	r := NewResolver(tree)

	e, err := r.FindEntry(context.Background(), "Session 1")
	if err != nil {
		t.Fatalf("FindEntry: %v", err)
	}
	if e.Name != "Session 1.md" || e.Handle != "subdir/Session 1.md" {
		t.Errorf("entry = %+v", e)
	}

	note, err := r.Resolve(context.Background(), "Session 1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := string(note.Content); got != "# Session 1\nThe party met." {
		t.Errorf("content = %q", got)
	}
}

func TestFindEntry_CandidateOrder(t *testing.T) {
	// The bare name lives at the root, the .md variant deep down. The .md
	// candidate is searched through the whole tree first.
	tree := NewMemTree(map[string]string{
		"Inn":             "bare",
		"a/b/c/Inn.md":    "deep md",
		"a/unrelated.md":  "x",
		"z/Inn.md.backup": "y",
	})
	if got := findHandle(t, tree, "Inn"); got != "a/b/c/Inn.md" {
		t.Errorf("handle = %q", got)
	}
}

func TestFindEntry_RootBeforeSubfolders(t *testing.T) {
	tree := NewMemTree(map[string]string{
		"a/Inn.md": "nested",
		"Inn.md":   "root",
	})
	if got := findHandle(t, tree, "Inn"); got != "Inn.md" {
		t.Errorf("handle = %q", got)
	}
}

func TestFindEntry_DepthFirst(t *testing.T) {
	tree := NewMemTree(map[string]string{
		"a/deep/Inn.md": "first",
		"b/Inn.md":      "second",
	})
	if got := findHandle(t, tree, "Inn"); got != "a/deep/Inn.md" {
		t.Errorf("handle = %q", got)
	}
}

func TestFindEntry_PathCandidate(t *testing.T) {
	tree := NewMemTree(map[string]string{
		"Campaign/Notes/Session 1.md": "wanted",
		"Archive/Session 1.md":        "other",
	})
	if got := findHandle(t, tree, "Notes/Session 1"); got != "Campaign/Notes/Session 1.md" {
		t.Errorf("handle = %q", got)
	}
}

func TestFindEntry_BasenameFallback(t *testing.T) {
	tree := NewMemTree(map[string]string{
		"Archive/Session 1.md": "moved",
	})
	if got := findHandle(t, tree, "Notes/Session 1"); got != "Archive/Session 1.md" {
		t.Errorf("handle = %q", got)
	}
}

func TestFindEntry_IgnoresDirectories(t *testing.T) {
	tree := NewMemTree(map[string]string{
		"Inn/readme.txt": "folder named like the note",
	})
	_, err := NewResolver(tree).FindEntry(context.Background(), "Inn")
	if !errors.Is(err, apperr.ErrEntryNotFound) {
		t.Errorf("error = %v, want ErrEntryNotFound", err)
	}
}

func TestFindEntry_NotFoundWithSuggestions(t *testing.T) {
	tree := NewMemTree(map[string]string{
		"npcs/Session 10.md": "a",
		"Tavern.md":          "b",
	})
	r := NewResolver(tree, WithSuggestions(3))

	_, err := r.FindEntry(context.Background(), "Sesion 1")
	if !errors.Is(err, apperr.ErrEntryNotFound) || !IsNotFound(err) {
		t.Fatalf("error = %v, want ErrEntryNotFound", err)
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error %T is not a *NotFoundError", err)
	}
	if want := []string{"Session 10.md"}; !reflect.DeepEqual(nf.Suggestions, want) {
		t.Errorf("Suggestions = %q, want %q", nf.Suggestions, want)
	}
	if !strings.Contains(err.Error(), "did you mean") {
		t.Errorf("message %q has no suggestion text", err.Error())
	}
}

func TestResolve_ReadFailure(t *testing.T) {
	tree := NewMemTree(map[string]string{"locked.md": "secret"})
	tree.FailRead("locked.md", errors.New("permission denied"))

	_, err := NewResolver(tree).Resolve(context.Background(), "locked")
	if !errors.Is(err, apperr.ErrReadFailure) {
		t.Fatalf("error = %v, want ErrReadFailure", err)
	}
	if IsNotFound(err) {
		t.Error("read failure reported as not found")
	}
}

type brokenTree struct{ *MemTree }

func (b brokenTree) List(ctx context.Context, dir Entry) ([]Entry, error) {
	if dir.Handle == "" {
		return nil, errors.New("revoked")
	}
	return b.MemTree.List(ctx, dir)
}

func TestResolve_UnlistableRoot(t *testing.T) {
	tree := brokenTree{NewMemTree(map[string]string{"a.md": "x"})}
	_, err := NewResolver(tree).Resolve(context.Background(), "a")
	if !errors.Is(err, apperr.ErrReadFailure) {
		t.Errorf("error = %v, want ErrReadFailure", err)
	}
}

func TestResolve_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewResolver(NewMemTree(map[string]string{"a.md": "x"})).Resolve(ctx, "a")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestResolveURL(t *testing.T) {
	tree := NewMemTree(map[string]string{"Notes/Session 1.md": "# One"})
	note, err := NewResolver(tree).ResolveURL(context.Background(), "obsidian://open?vault=MyVault&file=Notes%2FSession%201")
	if err != nil {
		t.Fatalf("ResolveURL: %v", err)
	}
	if note.Hint != "Notes/Session 1" || note.Entry.Name != "Session 1.md" {
		t.Errorf("note = %+v", note)
	}

	_, err = NewResolver(tree).ResolveURL(context.Background(), "obsidian://open?vault=MyVault")
	if !errors.Is(err, apperr.ErrHintNotFound) {
		t.Errorf("error = %v, want ErrHintNotFound", err)
	}
}

func TestFSTree_Resolve(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Campaign", "Sessions"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Campaign", "Sessions", "Session 1.md"), []byte("# Session 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	tree, err := NewFSTree(dir)
	if err != nil {
		t.Fatalf("NewFSTree: %v", err)
	}

	note, err := NewResolver(tree).Resolve(context.Background(), "Session 1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if note.Entry.Handle != "Campaign/Sessions/Session 1.md" {
		t.Errorf("handle = %q", note.Entry.Handle)
	}
	if string(note.Content) != "# Session 1" {
		t.Errorf("content = %q", note.Content)
	}
}

func TestFSTree_TraversalBlocked(t *testing.T) {
	tree, err := NewFSTree(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSTree: %v", err)
	}

	for _, h := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := tree.Read(context.Background(), Entry{Name: "x", Handle: h}); err == nil {
			t.Errorf("handle %q was readable", h)
		}
	}
}

func TestNewFSTree_Errors(t *testing.T) {
	if _, err := NewFSTree(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing dir")
	}

	f := filepath.Join(t.TempDir(), "file.md")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFSTree(f); err == nil {
		t.Error("expected error for regular file")
	}
}
