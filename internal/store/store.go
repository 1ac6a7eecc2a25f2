package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migrations[i] upgrades a database from user_version i to i+1.
// schema.sql always describes the latest layout, so a fresh database runs
// every step as a no-op and ends at currentSchemaVersion.
//
//	0 - initial commits/entries layout
//	1 - index on entries(oid, timestamp) for point-in-time reads
var migrations = []func(*sql.Tx) error{
	addEntriesTimestampIndex,
}

var currentSchemaVersion = len(migrations)

// ErrRevisionExists is returned by Append when a commit with the same
// revision is already in the log.
var ErrRevisionExists = errors.New("revision already in log")

// ErrNewerSchema is returned by Open for a database written by a newer
// release than this one.
var ErrNewerSchema = errors.New("database schema is newer than this build")

// pragmas are applied on every Open. The expected values are what
// PRAGMA reports back afterwards.
var pragmas = []struct {
	set, name, want string
}{
	// WAL lets readers (verify, history, export) run while a commit is written.
	{"PRAGMA journal_mode = WAL", "journal_mode", "wal"},
	{"PRAGMA synchronous = NORMAL", "synchronous", "1"},
	{"PRAGMA busy_timeout = 5000", "busy_timeout", "5000"},
	// entries.revision references commits.revision.
	{"PRAGMA foreign_keys = ON", "foreign_keys", "1"},
}

// Store is the SQLite commit log: one row per commit in commits and one
// row per inserted, updated or deleted object version in entries.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the log database at path, applying pragmas and
// any pending migrations. Opening an up-to-date database changes nothing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sql.Open is lazy; surface a bad path here rather than on first commit
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// The engine serialises commits itself. One connection keeps the
	// pragmas below in force and avoids SQLITE_BUSY between our own writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p.set); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p.set, err)
		}
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the connection for maintenance commands and tests. Writing
// through it bypasses the log's invariants.
func (s *Store) DB() *sql.DB {
	return s.db
}

// applySchema creates missing tables, then walks user_version up to
// currentSchemaVersion one migration at a time.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("%w: user_version %d, supported %d", ErrNewerSchema, version, currentSchemaVersion)
	}

	for v := version; v < currentSchemaVersion; v++ {
		if err := migrate(db, v); err != nil {
			return err
		}
	}
	return nil
}

// migrate runs migrations[from] and bumps user_version in one transaction,
// so a failed step leaves the database at its previous version.
func migrate(db *sql.DB, from int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v%d: begin: %w", from+1, err)
	}
	defer tx.Rollback()

	if err := migrations[from](tx); err != nil {
		return fmt.Errorf("migrate to v%d: %w", from+1, err)
	}
	// PRAGMA does not take bound parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", from+1)); err != nil {
		return fmt.Errorf("migrate to v%d: set user_version: %w", from+1, err)
	}
	return tx.Commit()
}

func addEntriesTimestampIndex(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_entries_oid_ts
		ON entries(oid, timestamp)
	`)
	return err
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
