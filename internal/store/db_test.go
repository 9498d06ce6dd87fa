package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMemory(t *testing.T) {
	if db := testDB(t); db.Path != MemoryPath {
		t.Errorf("Path = %q, want %q", db.Path, MemoryPath)
	}
}

func TestOpenFileSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "timescope.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.UpsertSnapshots([]Snapshot{{MemoryID: "m1", Summary: "x"}}); err != nil {
		t.Fatalf("UpsertSnapshots: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	if n, err := db.CountSnapshots(); err != nil || n != 1 {
		t.Errorf("CountSnapshots after reopen = %d, %v; want 1", n, err)
	}
	if v, _ := db.SchemaVersion(); v != len(migrations) {
		t.Errorf("SchemaVersion after reopen = %d, want %d", v, len(migrations))
	}
}

func TestSchemaVersion(t *testing.T) {
	db := testDB(t)

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("SchemaVersion = %d, want %d", v, len(migrations))
	}
}

func TestTablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"schema_versions", "snapshots", "searches", "search_results", "settings", "snapshot_vectors"}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestSearchesConstraints(t *testing.T) {
	db := testDB(t)

	_, err := db.Exec(`
		INSERT INTO searches (query, mode, source, created_at)
		VALUES ('q', 'search', 'remote', 1000)
	`)
	if err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO searches (query, mode, source, created_at)
		VALUES ('q', 'browse', 'remote', 1000)
	`)
	if err == nil {
		t.Error("expected error for invalid mode, got nil")
	}

	_, err = db.Exec(`
		INSERT INTO searches (query, mode, source, created_at)
		VALUES ('q', 'search', 'disk', 1000)
	`)
	if err == nil {
		t.Error("expected error for invalid source, got nil")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("SchemaVersion after re-migrate = %d, want %d", v, len(migrations))
	}
}

func TestPragmas(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "pragmas.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
	}
	for _, tt := range tests {
		var got string
		if err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Fatalf("PRAGMA %s: %v", tt.pragma, err)
		}
		if got != tt.want {
			t.Errorf("%s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}
