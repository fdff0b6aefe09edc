//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

// Without FTS5 the body column of conversions is scanned with LIKE.
func initFTS(_ *sql.DB) error { return nil }

func ftsInsert(_ *sql.Tx, _, _, _ string) error { return nil }

// Search matches conversions whose title, body or source contain the query,
// newest first. LIKE wildcards in the query match literally.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	like := likePattern(query)
	rows, err := db.conn.Query(`
		SELECT id, source, title, substr(body, 1, 160)
		FROM conversions
		WHERE title LIKE ?1 ESCAPE '\' OR body LIKE ?1 ESCAPE '\' OR source LIKE ?1 ESCAPE '\'
		ORDER BY created_at DESC
		LIMIT ?2
	`, like, searchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanSearchResults(rows)
}
