package engine

import (
	"github.com/roach88/edb/internal/record"
)

// resolution is the outcome of conflict detection: the entries the commit
// will actually write, with their assigned versions.
type resolution struct {
	inserts   []record.Entry
	updates   []record.Entry
	deletions []string // only ids that are live; others are no-ops
	skipped   []string // deletions of ids with no live entry
}

// detectConflicts checks c against the snapshot st.
//
// Rules:
//   - update: a live entry must exist (*NotFoundError). If the asserted
//     version differs from the stored one, the update conflicts only when
//     its attributes differ from the stored attributes
//     (*VersionConflictError). Equal values are accepted as-is.
//   - insert: the id must not be live (*DuplicateIDError). Inserting over a
//     tombstone resurrects the id; its version continues from the tombstone.
//   - deletion: ids without a live entry are dropped, not rejected.
//
// The first violation aborts detection; nothing is partially resolved.
func detectConflicts(st *state, c *record.Commit) (*resolution, error) {
	res := &resolution{
		inserts: make([]record.Entry, 0, len(c.Inserts)),
		updates: make([]record.Entry, 0, len(c.Updates)),
	}

	for _, in := range c.Inserts {
		prev, exists := st.latest(in.ID)
		if exists && !prev.Deleted {
			return nil, &DuplicateIDError{ID: in.ID}
		}
		e := in.Clone()
		e.Deleted = false
		e.Version = prev.Version + 1 // 1 for a new id
		if e.Attributes == nil {
			e.Attributes = record.Attributes{}
		}
		res.inserts = append(res.inserts, e)
	}

	for _, up := range c.Updates {
		stored, ok := st.live(up.ID)
		if !ok {
			return nil, &NotFoundError{ID: up.ID}
		}
		if up.Version != stored.Version && !up.Attributes.Equal(stored.Attributes) {
			return nil, &VersionConflictError{
				ID:              up.ID,
				ExpectedVersion: up.Version,
				StoredVersion:   stored.Version,
			}
		}
		e := up.Clone()
		e.Version = stored.Version + 1
		if e.Attributes == nil {
			e.Attributes = record.Attributes{}
		}
		res.updates = append(res.updates, e)
	}

	for _, id := range c.Deletions {
		if _, ok := st.live(id); !ok {
			res.skipped = append(res.skipped, id)
			continue
		}
		res.deletions = append(res.deletions, id)
	}

	return res, nil
}
