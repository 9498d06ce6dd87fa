package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// VectorRecord is the summary embedding of one cached snapshot. A snapshot
// holds at most one vector; embedding it under a new model replaces the old one.
type VectorRecord struct {
	MemoryID   string
	Embedding  []float64
	Model      string
	Dimensions int
	CreatedAt  int64
}

// Embeddings are stored as little-endian float64s.
func encodeEmbedding(vec []float64) []byte {
	buf := make([]byte, 0, len(vec)*8)
	for _, v := range vec {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float64 {
	vec := make([]float64, len(buf)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec
}

const upsertVector = `
	INSERT INTO snapshot_vectors (memory_id, embedding, model, dimensions, created_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(memory_id) DO UPDATE SET
		embedding = excluded.embedding, model = excluded.model,
		dimensions = excluded.dimensions, created_at = excluded.created_at`

// SaveVector stores the embedding for one cached snapshot.
func (db *DB) SaveVector(memoryID string, embedding []float64, model string) error {
	_, err := db.SaveVectors(model, map[string][]float64{memoryID: embedding})
	return err
}

// SaveVectors stores a batch of embeddings produced by model in one
// transaction. Any snapshot missing from the cache fails the whole batch.
func (db *DB) SaveVectors(model string, embeddings map[string][]float64) (int, error) {
	if len(embeddings) == 0 {
		return 0, nil
	}
	now := time.Now().UnixMilli()

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin save vectors: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertVector)
	if err != nil {
		return 0, fmt.Errorf("prepare save vectors: %w", err)
	}
	defer stmt.Close()

	for id, vec := range embeddings {
		if _, err := stmt.Exec(id, encodeEmbedding(vec), model, len(vec), now); err != nil {
			return 0, fmt.Errorf("save vector %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit vectors: %w", err)
	}
	return len(embeddings), nil
}

// GetVector returns the embedding for a snapshot, or nil if it has none.
func (db *DB) GetVector(memoryID string) (*VectorRecord, error) {
	v, err := scanVector(db.QueryRow(`
		SELECT memory_id, embedding, model, dimensions, created_at
		FROM snapshot_vectors WHERE memory_id = ?
	`, memoryID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vector: %w", err)
	}
	return &v, nil
}

func scanVector(row scanner) (VectorRecord, error) {
	var v VectorRecord
	var blob []byte
	if err := row.Scan(&v.MemoryID, &blob, &v.Model, &v.Dimensions, &v.CreatedAt); err != nil {
		return v, err
	}
	v.Embedding = decodeEmbedding(blob)
	return v, nil
}

// AllVectors returns the stored vectors produced by model.
func (db *DB) AllVectors(model string) ([]VectorRecord, error) {
	rows, err := db.Query(`
		SELECT memory_id, embedding, model, dimensions, created_at
		FROM snapshot_vectors WHERE model = ?
		ORDER BY memory_id
	`, model)
	if err != nil {
		return nil, fmt.Errorf("all vectors: %w", err)
	}
	defer rows.Close()

	var records []VectorRecord
	for rows.Next() {
		v, err := scanVector(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vector: %w", err)
		}
		records = append(records, v)
	}
	return records, rows.Err()
}

// Unembedded returns cached snapshots with a summary but no vector from model.
func (db *DB) Unembedded(model string) ([]Snapshot, error) {
	rows, err := db.Query(`
		SELECT `+snapshotCols+` FROM snapshots
		WHERE summary != ''
		  AND memory_id NOT IN (SELECT memory_id FROM snapshot_vectors WHERE model = ?)
		ORDER BY id
	`, model)
	if err != nil {
		return nil, fmt.Errorf("unembedded snapshots: %w", err)
	}
	return collectSnapshots(rows)
}

// ClearVectors drops every stored vector.
func (db *DB) ClearVectors() error {
	if _, err := db.Exec("DELETE FROM snapshot_vectors"); err != nil {
		return fmt.Errorf("clear vectors: %w", err)
	}
	return nil
}
