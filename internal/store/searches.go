package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Search modes.
const (
	ModeSearch = "search"
	ModeRange  = "range"
)

// Result sources.
const (
	SourceRemote = "remote"
	SourceCache  = "cache"
)

// Search is one logged query.
type Search struct {
	ID          int64  `json:"id"`
	Query       string `json:"query"`
	Mode        string `json:"mode"`
	Source      string `json:"source"`
	ResultCount int    `json:"result_count"`
	CreatedAt   int64  `json:"created_at"`
}

// SearchHit is a ranked result of a logged search.
type SearchHit struct {
	MemoryID   string
	Similarity *float64
	Rank       int
}

// RecordSearch logs a search and its ranked hits. Hits are ranked in the given order.
func (db *DB) RecordSearch(query, mode, source string, hits []SearchHit) (*Search, error) {
	now := time.Now().UnixMilli()

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin record search: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO searches (query, mode, source, result_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, query, mode, source, len(hits), now)
	if err != nil {
		return nil, fmt.Errorf("insert search: %w", err)
	}
	id, _ := res.LastInsertId()

	for i, h := range hits {
		if _, err := tx.Exec(`
			INSERT INTO search_results (search_id, rank, memory_id, similarity)
			VALUES (?, ?, ?, ?)
		`, id, i, h.MemoryID, h.Similarity); err != nil {
			return nil, fmt.Errorf("insert search result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit record search: %w", err)
	}
	return &Search{
		ID:          id,
		Query:       query,
		Mode:        mode,
		Source:      source,
		ResultCount: len(hits),
		CreatedAt:   now,
	}, nil
}

// SearchResults returns the cached snapshots for a logged search in rank
// order, with the similarity they had in that search. Hits whose snapshot has
// since been pruned are skipped.
func (db *DB) SearchResults(searchID int64) ([]Snapshot, error) {
	rows, err := db.Query(`
		SELECT s.id, s.memory_id, s.timestamp, s.summary, s.image_url, r.similarity, s.fetched_at
		FROM search_results r
		JOIN snapshots s ON s.memory_id = r.memory_id
		WHERE r.search_id = ?
		ORDER BY r.rank
	`, searchID)
	if err != nil {
		return nil, fmt.Errorf("search results: %w", err)
	}
	return collectSnapshots(rows)
}

// RecentSearches returns logged searches, newest first.
func (db *DB) RecentSearches(limit int) ([]Search, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, query, mode, source, result_count, created_at
		FROM searches ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent searches: %w", err)
	}
	defer rows.Close()

	var searches []Search
	for rows.Next() {
		var s Search
		if err := rows.Scan(&s.ID, &s.Query, &s.Mode, &s.Source, &s.ResultCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		searches = append(searches, s)
	}
	return searches, rows.Err()
}

// LatestRemoteSearch returns the most recent search for query that the
// remote server answered, or nil if there is none.
func (db *DB) LatestRemoteSearch(query, mode string) (*Search, error) {
	var s Search
	err := db.QueryRow(`
		SELECT id, query, mode, source, result_count, created_at
		FROM searches
		WHERE query = ? AND mode = ? AND source = 'remote'
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, query, mode).Scan(&s.ID, &s.Query, &s.Mode, &s.Source, &s.ResultCount, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest remote search: %w", err)
	}
	return &s, nil
}
