package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/roach88/edb/internal/record"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCommit creates a commit carrying the engine-assigned fields
// Append expects. n is used for both the revision and the timestamp.
func createTestCommit(n int64, parent uuid.UUID) *record.Commit {
	return &record.Commit{
		Revision:       testRevision(n),
		ParentRevision: parent,
		Timestamp:      1000 + n,
		Fingerprint:    "fp-" + testRevision(n).String(),
		Committer:      "tester",
	}
}

func testRevision(n int64) uuid.UUID {
	var rev uuid.UUID
	rev[15] = byte(n)
	rev[6] = 0x70 // version 7
	rev[8] = 0x80 // RFC 4122 variant
	return rev
}

func insertEntry(id string, version int64, attrs record.Attributes) record.Entry {
	return record.Entry{ID: id, Version: version, Attributes: attrs}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table info %s: %v", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
