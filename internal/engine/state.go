package engine

import (
	"sort"

	"github.com/benbjohnson/immutable"
	"github.com/google/uuid"

	"github.com/roach88/edb/internal/record"
)

// state is one immutable snapshot of every derived index.
//
// A commit builds a new state from the previous one with persistent
// (structurally shared) collections and publishes it with a single atomic
// pointer store. Readers load the pointer once and see either the whole
// commit or none of it.
//
// Entries and commits reachable from a state are never mutated; anything
// handed to callers is cloned first.
type state struct {
	// current maps id -> latest entry, tombstones included, ordered by id.
	current *immutable.SortedMap[string, record.Entry]

	// history maps id -> all entries ascending by timestamp and version.
	// Slices are copy-on-append and never modified in place.
	history *immutable.Map[string, []record.Entry]

	// commits is the log in append order (timestamps strictly increasing).
	commits *immutable.List[*record.Commit]

	// revisions and fingerprints map to positions in commits.
	revisions    *immutable.Map[string, int]
	fingerprints *immutable.Map[string, int]

	// resurrected holds ids whose history has a tombstone followed by a
	// live entry.
	resurrected *immutable.SortedMap[string, struct{}]

	head   uuid.UUID // revision of the last commit, uuid.Nil when empty
	lastTS int64     // timestamp of the last commit
}

func newState() *state {
	return &state{
		current:      immutable.NewSortedMap[string, record.Entry](nil),
		history:      immutable.NewMap[string, []record.Entry](nil),
		commits:      immutable.NewList[*record.Commit](),
		revisions:    immutable.NewMap[string, int](nil),
		fingerprints: immutable.NewMap[string, int](nil),
		resurrected:  immutable.NewSortedMap[string, struct{}](nil),
	}
}

// latest returns the current entry for id, tombstone or not.
func (s *state) latest(id string) (record.Entry, bool) {
	return s.current.Get(id)
}

// live returns the current entry for id only if it is not a tombstone.
func (s *state) live(id string) (record.Entry, bool) {
	e, ok := s.current.Get(id)
	if !ok || e.Deleted {
		return record.Entry{}, false
	}
	return e, true
}

// entries returns the history of id. The slice must not be modified.
func (s *state) entries(id string) []record.Entry {
	h, _ := s.history.Get(id)
	return h
}

// entryAt returns the entry for id with the greatest timestamp <= at.
func (s *state) entryAt(id string, at int64) (record.Entry, bool) {
	h := s.entries(id)
	// First index whose timestamp is after at; the answer is just before it.
	i := sort.Search(len(h), func(i int) bool { return h[i].Timestamp > at })
	if i == 0 {
		return record.Entry{}, false
	}
	return h[i-1], true
}

func (s *state) commitAt(i int) *record.Commit {
	return s.commits.Get(i)
}

// commitIndexAt returns the position of the commit with timestamp ts.
func (s *state) commitIndexAt(ts int64) (int, bool) {
	n := s.commits.Len()
	i := sort.Search(n, func(i int) bool { return s.commits.Get(i).Timestamp >= ts })
	if i < n && s.commits.Get(i).Timestamp == ts {
		return i, true
	}
	return 0, false
}

// firstCommitFrom returns the position of the first commit with
// timestamp >= ts.
func (s *state) firstCommitFrom(ts int64) int {
	return sort.Search(s.commits.Len(), func(i int) bool { return s.commits.Get(i).Timestamp >= ts })
}

func (s *state) revisionIndex(rev uuid.UUID) (int, bool) {
	return s.revisions.Get(rev.String())
}

// touchedSince reports whether any id of c was written by a commit after
// position idx.
func (s *state) touchedSince(c *record.Commit, idx int) bool {
	after := s.commitAt(idx).Timestamp
	for _, id := range c.IDs() {
		h := s.entries(id)
		if len(h) > 0 && h[len(h)-1].Timestamp > after {
			return true
		}
	}
	return false
}

// apply returns the state that results from appending the resolved commit
// c. c must already carry final versions and timestamps.
func (s *state) apply(c *record.Commit) *state {
	next := *s
	pos := s.commits.Len()

	write := func(e record.Entry) {
		prev := next.entries(e.ID)
		if n := len(prev); n > 0 && prev[n-1].Deleted && !e.Deleted {
			next.resurrected = next.resurrected.Set(e.ID, struct{}{})
		}
		h := make([]record.Entry, len(prev), len(prev)+1)
		copy(h, prev)
		next.history = next.history.Set(e.ID, append(h, e))
		next.current = next.current.Set(e.ID, e)
	}

	for _, e := range c.Inserts {
		write(e)
	}
	for _, e := range c.Updates {
		write(e)
	}
	for _, id := range c.Deletions {
		prev, _ := next.latest(id)
		write(record.Entry{
			ID:         id,
			Attributes: record.Attributes{},
			Timestamp:  c.Timestamp,
			Version:    prev.Version + 1,
			Deleted:    true,
		})
	}

	next.commits = next.commits.Append(c)
	next.revisions = next.revisions.Set(c.Revision.String(), pos)
	if c.Fingerprint != "" {
		next.fingerprints = next.fingerprints.Set(c.Fingerprint, pos)
	}
	next.head = c.Revision
	next.lastTS = c.Timestamp
	return &next
}
