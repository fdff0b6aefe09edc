package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/grimoire/internal/apperr"
)

// ConversionRow represents a row in the conversions table.
type ConversionRow struct {
	ID           string
	Source       string
	Title        string
	Hint         string
	Checksum     string
	HTMLName     string
	HTMLLocation string
	PDFName      string
	PDFLocation  string
	CreatedAt    time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const rowColumns = `id, source, title, hint, checksum, html_name, html_location, pdf_name, pdf_location, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (ConversionRow, error) {
	var r ConversionRow
	err := s.Scan(&r.ID, &r.Source, &r.Title, &r.Hint, &r.Checksum,
		&r.HTMLName, &r.HTMLLocation, &r.PDFName, &r.PDFLocation, &r.CreatedAt)
	return r, err
}

// Record stores a finished conversion and its markdown body within a transaction.
func (db *DB) Record(r ConversionRow, body string) error {
	if r.ID == "" {
		return fmt.Errorf("index: record: empty id: %w", apperr.ErrInvalidInput)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO conversions (`+rowColumns+`, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Source, r.Title, r.Hint, r.Checksum,
		r.HTMLName, r.HTMLLocation, r.PDFName, r.PDFLocation, r.CreatedAt.UTC(), body)
	if err != nil {
		return fmt.Errorf("index: insert conversion: %w", err)
	}

	// FTS insert (no-op when FTS5 tag is absent).
	if err := ftsInsert(tx, r.ID, r.Title, body); err != nil {
		return err
	}

	return tx.Commit()
}

// Get returns a single conversion by id.
func (db *DB) Get(id string) (*ConversionRow, error) {
	row := db.conn.QueryRow(`SELECT `+rowColumns+` FROM conversions WHERE id = ?`, id)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: conversion %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get conversion: %w", err)
	}
	return &r, nil
}

// List returns conversions newest first together with the total count.
func (db *DB) List(limit, offset int) ([]ConversionRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM conversions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count conversions: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT `+rowColumns+`
		FROM conversions
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list conversions: %w", err)
	}
	defer rows.Close()

	out := make([]ConversionRow, 0, limit)
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// LatestByChecksum returns the newest conversion of identical content, if any.
func (db *DB) LatestByChecksum(checksum string) (*ConversionRow, error) {
	row := db.conn.QueryRow(`
		SELECT `+rowColumns+`
		FROM conversions
		WHERE checksum = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, checksum)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: latest by checksum: %w", err)
	}
	return &r, nil
}

const defaultSearchLimit = 20

func searchLimit(limit int) int {
	if limit <= 0 {
		return defaultSearchLimit
	}
	return limit
}

func scanSearchResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Source, &r.Title, &r.Snippet); err != nil {
			return nil, fmt.Errorf("index: scan search result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ftsQuery turns free text into an FTS5 MATCH expression: each whitespace
// separated term becomes a quoted prefix query, so "goblin-cave" or "AND"
// never reach the FTS5 parser as syntax.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"*`
	}
	return strings.Join(terms, " ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps q for a substring LIKE with '\' as escape character.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(q)) + "%"
}
