//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

const ftsSchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS conversions_fts USING fts5(
	id UNINDEXED,
	title,
	body,
	tokenize = 'unicode61 remove_diacritics 2'
);`

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(ftsSchemaSQL)
	return err
}

func ftsInsert(tx *sql.Tx, id, title, body string) error {
	if _, err := tx.Exec(`INSERT INTO conversions_fts (id, title, body) VALUES (?, ?, ?)`, id, title, body); err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

// Search ranks conversions by FTS5 relevance. Every query term is matched as
// a prefix; FTS5 operators in the query are treated as plain text.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		return []SearchResult{}, nil
	}
	rows, err := db.conn.Query(`
		SELECT f.id, c.source, f.title,
		       snippet(conversions_fts, 2, '<b>', '</b>', '...', 24)
		FROM conversions_fts f
		JOIN conversions c ON c.id = f.id
		WHERE conversions_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, match, searchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanSearchResults(rows)
}
