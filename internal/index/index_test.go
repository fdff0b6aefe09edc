package index

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/grimoire/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "grimoire-test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM conversions`).Scan(&count); err != nil {
		t.Fatalf("conversions table missing: %v", err)
	}
	var version int
	if err := db.conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil || version != schemaVersion {
		t.Errorf("user_version = %d, %v; want %d", version, err, schemaVersion)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Record(ConversionRow{ID: "keep"}, "body"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if _, err := db.Get("keep"); err != nil {
		t.Errorf("row lost after reopen: %v", err)
	}
}

func TestOpen_NewerSchemaRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.conn.Exec(`PRAGMA user_version = 99`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := Open(path); err == nil || !strings.Contains(err.Error(), "newer") {
		t.Fatalf("err = %v, want newer schema error", err)
	}
}

func TestRecordAndGet(t *testing.T) {
	db := testDB(t)
	created := time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)
	row := ConversionRow{
		ID:           "c1",
		Source:       "Session 1.md",
		Title:        "Session 1",
		Hint:         "Notes/Session 1",
		Checksum:     "abc123",
		HTMLName:     "Session 1_20240301_183000.html",
		HTMLLocation: "/out/Session 1_20240301_183000.html",
		PDFName:      "Session 1_20240301_183000.pdf",
		CreatedAt:    created,
	}
	if err := db.Record(row, "# Session 1\nThe party met."); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := db.Get("c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Session 1" || got.Hint != "Notes/Session 1" || got.Checksum != "abc123" {
		t.Errorf("got %+v", got)
	}
	if got.HTMLLocation != row.HTMLLocation {
		t.Errorf("html location = %q, want %q", got.HTMLLocation, row.HTMLLocation)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, created)
	}
}

func TestRecord_EmptyID(t *testing.T) {
	db := testDB(t)
	if err := db.Record(ConversionRow{}, "x"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRecord_DuplicateID(t *testing.T) {
	db := testDB(t)
	if err := db.Record(ConversionRow{ID: "dup"}, "a"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := db.Record(ConversionRow{ID: "dup"}, "b"); err == nil {
		t.Error("expected error for duplicate id")
	}
}

func TestGet_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.Get("missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	db := testDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := db.Record(ConversionRow{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)}, ""); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}

	rows, total, err := db.List(2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(rows) != 2 || rows[0].ID != "new" || rows[1].ID != "mid" {
		t.Errorf("rows = %+v", rows)
	}

	rows, _, _ = db.List(2, 2)
	if len(rows) != 1 || rows[0].ID != "old" {
		t.Errorf("page 2 = %+v", rows)
	}
}

func TestLatestByChecksum(t *testing.T) {
	db := testDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = db.Record(ConversionRow{ID: "a", Checksum: "same", CreatedAt: base}, "")
	_ = db.Record(ConversionRow{ID: "b", Checksum: "same", CreatedAt: base.Add(time.Minute)}, "")

	got, err := db.LatestByChecksum("same")
	if err != nil {
		t.Fatalf("LatestByChecksum: %v", err)
	}
	if got == nil || got.ID != "b" {
		t.Errorf("got %+v, want b", got)
	}

	got, err = db.LatestByChecksum("other")
	if err != nil || got != nil {
		t.Errorf("got %+v, %v; want nil, nil", got, err)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.Record(ConversionRow{ID: "s", Source: "lair.md", Title: "Dragon Lair"}, "the uniqueword hoard glitters")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "s" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
	if results[0].Source != "lair.md" {
		t.Errorf("source = %q", results[0].Source)
	}
}

func TestFTSQuery(t *testing.T) {
	cases := map[string]string{
		"goblin":          `"goblin"*`,
		"goblin-cave AND": `"goblin-cave"* "AND"*`,
		`say "hi"`:        `"say"* """hi"""*`,
		"   ":             "",
	}
	for in, want := range cases {
		if got := ftsQuery(in); got != want {
			t.Errorf("ftsQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLikePattern(t *testing.T) {
	if got := likePattern(" 10%_off\\ "); got != `%10\%\_off\\%` {
		t.Errorf("likePattern = %q", got)
	}
}
