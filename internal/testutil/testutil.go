// Package testutil provides shared test helpers for conversion history,
// output directories and vault fixtures.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/grimoire/internal/index"
	"github.com/starford/grimoire/internal/output"
	"github.com/starford/grimoire/internal/vault"
)

// FixedTime is the clock value returned by Clock.
var FixedTime = time.Date(2024, 3, 1, 18, 30, 5, 0, time.UTC)

// Clock always returns FixedTime, so output names end in "_20240301_183005".
func Clock() time.Time {
	return FixedTime
}

// TestDB creates a temporary SQLite history database that is automatically
// closed.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "grimoire-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSink creates a temporary output directory and a DirSink writing to it.
func TestSink(t *testing.T) (string, *output.DirSink) {
	t.Helper()
	dir := t.TempDir()
	sink, err := output.NewDirSink(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, sink
}

// TestVault writes files (slash-separated path → content) into a temporary
// directory and returns a tree over it.
func TestVault(t *testing.T, files map[string]string) (string, *vault.FSTree) {
	t.Helper()
	vaultDir := t.TempDir()
	for p, content := range files {
		abs := filepath.Join(vaultDir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	tree, err := vault.NewFSTree(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, tree
}
