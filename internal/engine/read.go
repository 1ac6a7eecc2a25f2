package engine

import (
	"slices"

	"github.com/google/uuid"

	"github.com/roach88/edb/internal/record"
)

// GetObject returns the latest entry for id. A deleted object is returned
// as its tombstone (Deleted set). ok is false when id was never written.
func (e *Engine) GetObject(id string) (record.Entry, bool) {
	entry, ok := e.snapshot().latest(id)
	if !ok {
		return record.Entry{}, false
	}
	return entry.Clone(), true
}

// GetObjectAt returns the entry for id with the greatest timestamp <= at.
// ok is false when id has no entry at or before at.
func (e *Engine) GetObjectAt(id string, at int64) (record.Entry, bool) {
	entry, ok := e.snapshot().entryAt(id, at)
	if !ok {
		return record.Entry{}, false
	}
	return entry.Clone(), true
}

// Exists reports whether id currently has a live entry.
func (e *Engine) Exists(id string) bool {
	_, ok := e.snapshot().live(id)
	return ok
}

// GetHistory returns every entry ever written for id, ascending by
// timestamp and version. Empty for unknown ids.
func (e *Engine) GetHistory(id string) []record.Entry {
	h := e.snapshot().entries(id)
	out := make([]record.Entry, len(h))
	for i, entry := range h {
		out[i] = entry.Clone()
	}
	return out
}

// GetLog returns the commits touching id with timestamp in [from, to],
// ascending.
func (e *Engine) GetLog(id string, from, to int64) []*record.Commit {
	st := e.snapshot()
	out := []*record.Commit{}
	if from > to {
		return out
	}

	// Each history entry was written by the commit with the same timestamp.
	for _, entry := range st.entries(id) {
		if entry.Timestamp < from {
			continue
		}
		if entry.Timestamp > to {
			break
		}
		if i, ok := st.commitIndexAt(entry.Timestamp); ok {
			out = append(out, st.commitAt(i).Clone())
		}
	}
	return out
}

// GetCommits returns the commits with timestamp in [from, to], ascending.
func (e *Engine) GetCommits(from, to int64) []*record.Commit {
	st := e.snapshot()
	out := []*record.Commit{}
	for i := st.firstCommitFrom(from); i < st.commits.Len(); i++ {
		c := st.commitAt(i)
		if c.Timestamp > to {
			break
		}
		out = append(out, c.Clone())
	}
	return out
}

// GetCommitsByTag returns the commits whose provenance tag key equals
// value, in log order. key must be one of record.TagKeys.
func (e *Engine) GetCommitsByTag(key, value string) ([]*record.Commit, error) {
	if !slices.Contains(record.TagKeys, key) {
		return nil, &ValidationError{Message: "unknown tag " + key}
	}

	st := e.snapshot()
	out := []*record.Commit{}
	itr := st.commits.Iterator()
	for !itr.Done() {
		_, c := itr.Next()
		if v, _ := c.Tag(key); v == value {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// GetCommitByRevision returns the commit with the given revision.
func (e *Engine) GetCommitByRevision(rev uuid.UUID) (*record.Commit, bool) {
	st := e.snapshot()
	i, ok := st.revisionIndex(rev)
	if !ok {
		return nil, false
	}
	return st.commitAt(i).Clone(), true
}

// GetResurrectedIDs returns, sorted, the ids that were deleted and later
// inserted again.
func (e *Engine) GetResurrectedIDs() []string {
	st := e.snapshot()
	out := make([]string, 0, st.resurrected.Len())
	itr := st.resurrected.Iterator()
	for !itr.Done() {
		id, _, _ := itr.Next()
		out = append(out, id)
	}
	return out
}

// GetCurrentRevision returns the revision of the last commit, or uuid.Nil
// for an empty log.
func (e *Engine) GetCurrentRevision() uuid.UUID {
	return e.snapshot().head
}

// LastTimestamp returns the timestamp of the last commit, 0 when empty.
func (e *Engine) LastTimestamp() int64 {
	return e.snapshot().lastTS
}

// CommitCount returns the number of commits in the log.
func (e *Engine) CommitCount() int {
	return e.snapshot().commits.Len()
}

// IDs returns every id ever written, sorted, tombstoned ones included.
func (e *Engine) IDs() []string {
	st := e.snapshot()
	out := make([]string, 0, st.current.Len())
	itr := st.current.Iterator()
	for !itr.Done() {
		id, _, _ := itr.Next()
		out = append(out, id)
	}
	return out
}
