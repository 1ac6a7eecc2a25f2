package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/edb/internal/record"
)

// MemoryLog is a CommitLog held in process memory. Used by tests, the
// scenario harness and throwaway engines.
type MemoryLog struct {
	mu      sync.Mutex
	commits []*record.Commit
	seen    map[uuid.UUID]bool
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{seen: make(map[uuid.UUID]bool)}
}

// NewMemoryLogFrom creates an in-memory log pre-loaded with commits, e.g.
// to replay an exported log.
func NewMemoryLogFrom(commits []*record.Commit) *MemoryLog {
	l := NewMemoryLog()
	for _, c := range commits {
		l.commits = append(l.commits, c.Clone())
		l.seen[c.Revision] = true
	}
	return l
}

// Append stores a copy of c.
func (l *MemoryLog) Append(ctx context.Context, c *record.Commit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seen[c.Revision] {
		return fmt.Errorf("append commit: revision %s already in log", c.Revision)
	}
	l.commits = append(l.commits, c.Clone())
	l.seen[c.Revision] = true
	return nil
}

// Load returns copies of all commits in append order.
func (l *MemoryLog) Load(ctx context.Context) ([]*record.Commit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*record.Commit, len(l.commits))
	for i, c := range l.commits {
		out[i] = c.Clone()
	}
	return out, nil
}

// Len returns the number of commits in the log.
func (l *MemoryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.commits)
}

// Close is a no-op.
func (l *MemoryLog) Close() error {
	return nil
}
