package engine

import (
	"sync"

	"github.com/google/uuid"
)

// RevisionGenerator assigns revisions to commits that arrive without one.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RevisionGenerator interface {
	Generate() uuid.UUID
}

// UUIDv7Generator generates time-sortable UUIDv7 revisions.
//
// UUIDv7 embeds a timestamp in the most significant bits, so revisions sort
// roughly by creation time. Handy when eyeballing a log.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// FixedGenerator returns predetermined revisions for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu        sync.Mutex
	revisions []uuid.UUID
	idx       int
}

// NewFixedGenerator creates a generator that returns revisions in order.
//
// Example:
//
//	gen := NewFixedGenerator(rev1, rev2)
//	gen.Generate() // rev1
//	gen.Generate() // rev2
//	gen.Generate() // panic: all revisions exhausted
func NewFixedGenerator(revisions ...uuid.UUID) *FixedGenerator {
	return &FixedGenerator{revisions: revisions}
}

// Generate returns the next predetermined revision.
//
// Panics if all revisions have been consumed, to catch a test that commits
// more often than it planned for.
func (g *FixedGenerator) Generate() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.revisions) {
		panic("FixedGenerator: all revisions exhausted")
	}
	rev := g.revisions[g.idx]
	g.idx++
	return rev
}
