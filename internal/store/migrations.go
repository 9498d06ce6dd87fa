package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "snapshots: cached memoir snapshots",
		SQL: `
CREATE TABLE snapshots (
    id          INTEGER PRIMARY KEY,
    memory_id   TEXT NOT NULL UNIQUE,
    timestamp   INTEGER,
    summary     TEXT NOT NULL DEFAULT '',
    image_url   TEXT,
    similarity  REAL,
    fetched_at  INTEGER NOT NULL
);

CREATE INDEX idx_snapshots_timestamp ON snapshots(timestamp);
CREATE INDEX idx_snapshots_fetched   ON snapshots(fetched_at);
`,
	},
	{
		Version:     2,
		Description: "searches: query log and ranked results",
		SQL: `
CREATE TABLE searches (
    id            INTEGER PRIMARY KEY,
    query         TEXT NOT NULL,
    mode          TEXT NOT NULL CHECK (mode IN ('search', 'range')),
    source        TEXT NOT NULL CHECK (source IN ('remote', 'cache')),
    result_count  INTEGER NOT NULL DEFAULT 0,
    created_at    INTEGER NOT NULL
);

CREATE INDEX idx_searches_query   ON searches(query);
CREATE INDEX idx_searches_created ON searches(created_at DESC);

CREATE TABLE search_results (
    search_id   INTEGER NOT NULL,
    rank        INTEGER NOT NULL,
    memory_id   TEXT NOT NULL,
    similarity  REAL,
    PRIMARY KEY (search_id, rank),
    FOREIGN KEY (search_id) REFERENCES searches(id) ON DELETE CASCADE
);
`,
	},
	{
		Version:     3,
		Description: "settings: persisted user preferences",
		SQL: `
CREATE TABLE settings (
    key         TEXT PRIMARY KEY,
    value       TEXT NOT NULL,
    updated_at  INTEGER NOT NULL
);
`,
	},
	{
		Version:     4,
		Description: "snapshot_vectors: summary embeddings for offline search",
		SQL: `
CREATE TABLE snapshot_vectors (
    memory_id   TEXT PRIMARY KEY,
    embedding   BLOB NOT NULL,
    model       TEXT NOT NULL,
    dimensions  INTEGER NOT NULL,
    created_at  INTEGER NOT NULL,
    FOREIGN KEY (memory_id) REFERENCES snapshots(memory_id) ON DELETE CASCADE
);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
