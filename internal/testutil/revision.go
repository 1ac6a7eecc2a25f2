package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Revision returns the n-th deterministic test revision:
// 00000000-0000-7000-8000-{n:012d}.
//
// The version and variant nibbles are those of a UUIDv7 so the value is
// indistinguishable in shape from a generated revision.
func Revision(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-7000-8000-%012d", n))
}

// SequentialRevisions generates Revision(1), Revision(2), ...
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with a fresh SequentialRevisions produces byte-identical
// commit logs.
//
// Implements engine.RevisionGenerator.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialRevisions struct {
	mu sync.Mutex
	n  int
}

// NewSequentialRevisions creates a generator whose first revision is
// Revision(1).
func NewSequentialRevisions() *SequentialRevisions {
	return &SequentialRevisions{}
}

// Generate returns the next revision.
func (g *SequentialRevisions) Generate() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return Revision(g.n)
}

// Reset restarts the sequence at Revision(1).
func (g *SequentialRevisions) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
