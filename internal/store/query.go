package store

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/edb/internal/query"
	"github.com/roach88/edb/internal/querysql"
	"github.com/roach88/edb/internal/record"
)

// Query evaluates pred in SQLite against the latest entries, without
// replaying the log. Results match engine.Query.
func (s *Store) Query(ctx context.Context, pred query.Predicate) ([]record.Entry, error) {
	return s.QueryAt(ctx, pred, math.MaxInt64)
}

// QueryAt evaluates pred against the snapshot visible at timestamp at: for
// each id the highest version written at or before at, skipping ids that
// were deleted or not yet created by then.
//
// Results are ordered by id with COLLATE BINARY so they line up with the
// engine's byte-ordered index.
func (s *Store) QueryAt(ctx context.Context, pred query.Predicate, at int64) ([]record.Entry, error) {
	cond, params, err := (&querysql.SQLCompiler{Column: "e.attributes"}).Compile(pred)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}

	args := append([]any{at, at}, params...)
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.oid, e.version, e.timestamp, e.attributes
		FROM entries e
		WHERE e.timestamp <= ?
		  AND e.version = (
		      SELECT MAX(v.version) FROM entries v
		      WHERE v.oid = e.oid AND v.timestamp <= ?
		  )
		  AND e.deleted = 0
		  AND (`+cond+`)
		ORDER BY e.oid COLLATE BINARY ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	out := []record.Entry{}
	for rows.Next() {
		var (
			e         record.Entry
			attrsJSON string
		)
		if err := rows.Scan(&e.ID, &e.Version, &e.Timestamp, &attrsJSON); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Attributes, err = unmarshalAttributes(attrsJSON); err != nil {
			return nil, fmt.Errorf("entry %q v%d: %w", e.ID, e.Version, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}
