package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/edb/internal/record"
)

const commitColumns = `
	revision, parent_revision, timestamp, fingerprint,
	committer, role, domain_id, connector_id, instance_id, context_id, comment`

// Load returns every commit in the log in append order, with entries in
// submission order. Used by the engine to rebuild its indexes.
//
// Returns an empty slice (not nil) for an empty log.
func (s *Store) Load(ctx context.Context) ([]*record.Commit, error) {
	return s.readCommits(ctx, `SELECT `+commitColumns+` FROM commits ORDER BY seq ASC`)
}

// ReadCommit retrieves a single commit by revision.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadCommit(ctx context.Context, revision uuid.UUID) (*record.Commit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+commitColumns+` FROM commits WHERE revision = ?`,
		formatRevision(revision))

	c, err := scanCommit(row)
	if err != nil {
		return nil, err
	}
	if err := s.attachEntries(ctx, map[string]*record.Commit{formatRevision(c.Revision): c},
		`WHERE e.revision = ?`, formatRevision(c.Revision)); err != nil {
		return nil, err
	}
	return c, nil
}

// CountCommits returns the number of commits in the log.
func (s *Store) CountCommits(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commits`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count commits: %w", err)
	}
	return n, nil
}

func (s *Store) readCommits(ctx context.Context, query string, args ...any) ([]*record.Commit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}

	commits := []*record.Commit{}
	byRevision := make(map[string]*record.Commit)
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		commits = append(commits, c)
		byRevision[formatRevision(c.Revision)] = c
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	rows.Close()

	if len(commits) == 0 {
		return commits, nil
	}
	if err := s.attachEntries(ctx, byRevision, ""); err != nil {
		return nil, err
	}
	return commits, nil
}

// attachEntries reads entry rows (optionally filtered by where) and files
// them into the matching commits. Rows for commits not in byRevision are
// skipped.
func (s *Store) attachEntries(ctx context.Context, byRevision map[string]*record.Commit, where string, args ...any) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.revision, e.kind, e.oid, e.version, e.timestamp, e.deleted, e.attributes
		FROM entries e
		JOIN commits c ON c.revision = e.revision
		`+where+`
		ORDER BY c.seq ASC, e.kind ASC, e.position ASC
	`, args...)
	if err != nil {
		return fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			revision, kind, attrsJSON string
			deleted                   int
			e                         record.Entry
		)
		if err := rows.Scan(&revision, &kind, &e.ID, &e.Version, &e.Timestamp, &deleted, &attrsJSON); err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}
		c, ok := byRevision[revision]
		if !ok {
			continue
		}

		attrs, err := unmarshalAttributes(attrsJSON)
		if err != nil {
			return fmt.Errorf("entry %q v%d: %w", e.ID, e.Version, err)
		}
		e.Attributes = attrs
		e.Deleted = deleted != 0

		switch kind {
		case kindInsert:
			c.Inserts = append(c.Inserts, e)
		case kindUpdate:
			c.Updates = append(c.Updates, e)
		case kindDelete:
			c.Deletions = append(c.Deletions, e.ID)
		default:
			return fmt.Errorf("entry %q: unknown kind %q", e.ID, kind)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate entries: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommit(row rowScanner) (*record.Commit, error) {
	var (
		c                record.Commit
		revision, parent string
	)
	err := row.Scan(
		&revision,
		&parent,
		&c.Timestamp,
		&c.Fingerprint,
		&c.Committer,
		&c.Role,
		&c.DomainID,
		&c.ConnectorID,
		&c.InstanceID,
		&c.ContextID,
		&c.Comment,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan commit: %w", err)
	}

	if c.Revision, err = parseRevision(revision); err != nil {
		return nil, fmt.Errorf("scan commit: %w", err)
	}
	if c.ParentRevision, err = parseRevision(parent); err != nil {
		return nil, fmt.Errorf("scan commit: %w", err)
	}
	return &c, nil
}
