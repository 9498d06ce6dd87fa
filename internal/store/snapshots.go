package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Snapshot is a cached memoir snapshot.
type Snapshot struct {
	ID         int64
	MemoryID   string
	Timestamp  *int64 // unix ms, nil when the server sent none
	Summary    string
	ImageURL   string
	Similarity *float64 // last similarity seen for this snapshot
	FetchedAt  int64
}

// Time returns the snapshot timestamp, or the zero time when unknown.
func (s Snapshot) Time() time.Time {
	if s.Timestamp == nil {
		return time.Time{}
	}
	return time.UnixMilli(*s.Timestamp)
}

const snapshotCols = `id, memory_id, timestamp, summary, image_url, similarity, fetched_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var s Snapshot
	var imageURL sql.NullString
	err := row.Scan(&s.ID, &s.MemoryID, &s.Timestamp, &s.Summary, &imageURL, &s.Similarity, &s.FetchedAt)
	s.ImageURL = imageURL.String
	return s, err
}

// UpsertSnapshots inserts or refreshes snapshots by memory_id in a single
// transaction. Fields the new copy lacks keep their cached values. Snapshots
// without a memory_id are skipped. Returns the number written.
func (db *DB) UpsertSnapshots(snaps []Snapshot) (int, error) {
	if len(snaps) == 0 {
		return 0, nil
	}
	now := time.Now().UnixMilli()

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO snapshots (memory_id, timestamp, summary, image_url, similarity, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET
			timestamp  = COALESCE(excluded.timestamp, timestamp),
			summary    = CASE WHEN excluded.summary != '' THEN excluded.summary ELSE summary END,
			image_url  = COALESCE(excluded.image_url, image_url),
			similarity = COALESCE(excluded.similarity, similarity),
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, s := range snaps {
		if s.MemoryID == "" {
			continue
		}
		fetched := s.FetchedAt
		if fetched == 0 {
			fetched = now
		}
		var imageURL any
		if s.ImageURL != "" {
			imageURL = s.ImageURL
		}
		if _, err := stmt.Exec(s.MemoryID, s.Timestamp, s.Summary, imageURL, s.Similarity, fetched); err != nil {
			return 0, fmt.Errorf("upsert snapshot %s: %w", s.MemoryID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return written, nil
}

// GetSnapshot returns a snapshot by memory_id, or nil if not cached.
func (db *DB) GetSnapshot(memoryID string) (*Snapshot, error) {
	s, err := scanSnapshot(db.QueryRow(`SELECT `+snapshotCols+` FROM snapshots WHERE memory_id = ?`, memoryID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return &s, nil
}

// ListSnapshots returns cached snapshots newest first; those without a
// timestamp come last. limit <= 0 means no limit.
func (db *DB) ListSnapshots(limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT `+snapshotCols+` FROM snapshots
		ORDER BY timestamp IS NULL, timestamp DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return collectSnapshots(rows)
}

// SnapshotsBetween returns snapshots whose timestamp falls in [start, end]
// (unix ms), oldest first.
func (db *DB) SnapshotsBetween(start, end int64, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT `+snapshotCols+` FROM snapshots
		WHERE timestamp BETWEEN ? AND ?
		ORDER BY timestamp, id
		LIMIT ?
	`, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshots between: %w", err)
	}
	return collectSnapshots(rows)
}

func collectSnapshots(rows *sql.Rows) ([]Snapshot, error) {
	defer rows.Close()
	var snaps []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// CountSnapshots returns the number of cached snapshots.
func (db *DB) CountSnapshots() (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

// OldestSnapshot returns the earliest cached timestamp (unix ms), or nil when
// nothing with a timestamp is cached.
func (db *DB) OldestSnapshot() (*int64, error) {
	var oldest sql.NullInt64
	if err := db.QueryRow(`SELECT MIN(timestamp) FROM snapshots`).Scan(&oldest); err != nil {
		return nil, fmt.Errorf("oldest snapshot: %w", err)
	}
	if !oldest.Valid {
		return nil, nil
	}
	return &oldest.Int64, nil
}

// PruneSnapshots deletes snapshots fetched before cutoff along with their
// vectors, and searches logged before cutoff. Returns the snapshots removed.
func (db *DB) PruneSnapshots(cutoff time.Time) (int64, error) {
	ms := cutoff.UnixMilli()

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin prune: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM snapshot_vectors
		WHERE memory_id IN (SELECT memory_id FROM snapshots WHERE fetched_at < ?)
	`, ms); err != nil {
		return 0, fmt.Errorf("prune vectors: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM snapshots WHERE fetched_at < ?`, ms)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	removed, _ := res.RowsAffected()

	if _, err := tx.Exec(`
		DELETE FROM search_results
		WHERE search_id IN (SELECT id FROM searches WHERE created_at < ?)
	`, ms); err != nil {
		return 0, fmt.Errorf("prune search results: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM searches WHERE created_at < ?`, ms); err != nil {
		return 0, fmt.Errorf("prune searches: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return removed, nil
}
