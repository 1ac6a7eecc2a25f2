package store

import (
	"context"
	"fmt"
)

// IntegrityReport summarizes structural problems found in the log.
type IntegrityReport struct {
	Commits  int      `json:"commits"`
	Entries  int      `json:"entries"`
	Problems []string `json:"problems"` // Empty when the log is consistent
}

// OK reports whether no problems were found.
func (r IntegrityReport) OK() bool {
	return len(r.Problems) == 0
}

// CheckIntegrity scans the log for violations the schema cannot express:
//  1. Every commit's parent is the commit appended just before it
//  2. Commit timestamps strictly increase in append order
//  3. Versions of every id are contiguous from 1 (no gaps)
//  4. Every entry carries its commit's timestamp
//
// It reads only; repairs are the caller's business.
func (s *Store) CheckIntegrity(ctx context.Context) (IntegrityReport, error) {
	var report IntegrityReport

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commits`).Scan(&report.Commits); err != nil {
		return report, fmt.Errorf("check integrity: count commits: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&report.Entries); err != nil {
		return report, fmt.Errorf("check integrity: count entries: %w", err)
	}

	if err := s.checkChain(ctx, &report); err != nil {
		return report, err
	}
	if err := s.checkVersions(ctx, &report); err != nil {
		return report, err
	}
	if err := s.checkEntryTimestamps(ctx, &report); err != nil {
		return report, err
	}

	return report, nil
}

// checkChain walks commits in seq order verifying parent links and
// timestamp monotonicity.
func (s *Store) checkChain(ctx context.Context, report *IntegrityReport) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, revision, parent_revision, timestamp
		FROM commits
		ORDER BY seq ASC
	`)
	if err != nil {
		return fmt.Errorf("check integrity: query chain: %w", err)
	}
	defer rows.Close()

	var (
		prevRevision string
		prevTS       int64
		first        = true
	)
	for rows.Next() {
		var (
			seq, ts          int64
			revision, parent string
		)
		if err := rows.Scan(&seq, &revision, &parent, &ts); err != nil {
			return fmt.Errorf("check integrity: scan chain: %w", err)
		}
		if parent != prevRevision {
			report.Problems = append(report.Problems,
				fmt.Sprintf("commit %s (seq %d): parent %q, expected %q", revision, seq, parent, prevRevision))
		}
		if !first && ts <= prevTS {
			report.Problems = append(report.Problems,
				fmt.Sprintf("commit %s (seq %d): timestamp %d not after %d", revision, seq, ts, prevTS))
		}
		prevRevision, prevTS, first = revision, ts, false
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("check integrity: iterate chain: %w", err)
	}
	return nil
}

// checkVersions finds ids whose stored versions are not exactly 1..n.
// UNIQUE(oid, version) rules out duplicates, so count == max implies no gaps.
func (s *Store) checkVersions(ctx context.Context, report *IntegrityReport) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT oid, COUNT(*), MIN(version), MAX(version)
		FROM entries
		GROUP BY oid
		HAVING COUNT(*) != MAX(version) OR MIN(version) != 1
		ORDER BY oid COLLATE BINARY ASC
	`)
	if err != nil {
		return fmt.Errorf("check integrity: query versions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			oid           string
			count, lo, hi int64
		)
		if err := rows.Scan(&oid, &count, &lo, &hi); err != nil {
			return fmt.Errorf("check integrity: scan versions: %w", err)
		}
		report.Problems = append(report.Problems,
			fmt.Sprintf("id %q: %d versions spanning %d..%d", oid, count, lo, hi))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("check integrity: iterate versions: %w", err)
	}
	return nil
}

func (s *Store) checkEntryTimestamps(ctx context.Context, report *IntegrityReport) error {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM entries e
		JOIN commits c ON c.revision = e.revision
		WHERE e.timestamp != c.timestamp
	`).Scan(&n)
	if err != nil {
		return fmt.Errorf("check integrity: entry timestamps: %w", err)
	}
	if n > 0 {
		report.Problems = append(report.Problems,
			fmt.Sprintf("%d entries carry a timestamp different from their commit", n))
	}
	return nil
}
