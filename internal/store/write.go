package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/edb/internal/record"
)

// Entry kinds as stored in entries.kind.
const (
	kindInsert = "insert"
	kindUpdate = "update"
	kindDelete = "delete"
)

// Append writes an accepted commit and all of its entries in a single
// transaction. Either everything is persisted or nothing is.
//
// The commit must already carry its engine-assigned revision, timestamp,
// fingerprint and resolved entry versions. Deletions are stored as
// tombstone rows versioned one past the id's latest stored version.
//
// Uses ON CONFLICT(revision) DO NOTHING: a second append of the same
// revision writes nothing and returns ErrRevisionExists.
func (s *Store) Append(ctx context.Context, c *record.Commit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := appendTx(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append commit: commit: %w", err)
	}
	return nil
}

// AppendAll writes commits in order in one transaction. Used by import:
// if any commit is rejected the database is left as it was.
func (s *Store) AppendAll(ctx context.Context, commits []*record.Commit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append commits: begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, c := range commits {
		if err := appendTx(ctx, tx, c); err != nil {
			return fmt.Errorf("commit %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append commits: commit: %w", err)
	}
	return nil
}

func appendTx(ctx context.Context, tx *sql.Tx, c *record.Commit) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO commits
		(revision, parent_revision, timestamp, fingerprint,
		 committer, role, domain_id, connector_id, instance_id, context_id, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(revision) DO NOTHING
	`,
		formatRevision(c.Revision),
		formatRevision(c.ParentRevision),
		c.Timestamp,
		c.Fingerprint,
		c.Committer,
		c.Role,
		c.DomainID,
		c.ConnectorID,
		c.InstanceID,
		c.ContextID,
		c.Comment,
	)
	if err != nil {
		return fmt.Errorf("append commit: insert commit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("append commit: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("append commit %s: %w", c.Revision, ErrRevisionExists)
	}

	for i, e := range c.Inserts {
		if err := writeEntry(ctx, tx, c, kindInsert, i, e); err != nil {
			return err
		}
	}
	for i, e := range c.Updates {
		if err := writeEntry(ctx, tx, c, kindUpdate, i, e); err != nil {
			return err
		}
	}
	for i, id := range c.Deletions {
		var latest int64
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(version), 0) FROM entries WHERE oid = ?
		`, id).Scan(&latest)
		if err != nil {
			return fmt.Errorf("append commit: latest version of %q: %w", id, err)
		}
		if latest == 0 {
			return fmt.Errorf("append commit: deletion of unknown id %q", id)
		}
		tomb := record.Entry{ID: id, Version: latest + 1, Deleted: true}
		if err := writeEntry(ctx, tx, c, kindDelete, i, tomb); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(ctx context.Context, tx *sql.Tx, c *record.Commit, kind string, position int, e record.Entry) error {
	attrsJSON, err := marshalAttributes(e.Attributes)
	if err != nil {
		return fmt.Errorf("append commit: %s %q: %w", kind, e.ID, err)
	}

	deleted := 0
	if e.Deleted {
		deleted = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries
		(revision, kind, position, oid, version, timestamp, deleted, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		formatRevision(c.Revision),
		kind,
		position,
		e.ID,
		e.Version,
		c.Timestamp,
		deleted,
		attrsJSON,
	)
	if err != nil {
		return fmt.Errorf("append commit: write %s %q: %w", kind, e.ID, err)
	}
	return nil
}
