package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/edb/internal/record"
)

// CommitLog is the durable, append-only sequence of accepted commits.
// Implemented by store.Store (SQLite), badgerlog.Log (BadgerDB) and
// MemoryLog.
//
// Append must be atomic: on error nothing of the commit is persisted.
// Load returns commits in append order.
type CommitLog interface {
	Append(ctx context.Context, c *record.Commit) error
	Load(ctx context.Context) ([]*record.Commit, error)
	Close() error
}

// Validator checks an insert or update entry before it is persisted.
// A non-nil error rejects the whole commit with a *ValidationError.
type Validator interface {
	ValidateEntry(e record.Entry) error
}

// Engine is the versioned record store.
//
// Thread-safety model:
//   - Commit(): safe from any goroutine; commits are serialized by a
//     single writer mutex covering validation, timestamp assignment, log
//     append and index publication
//   - reads: safe from any goroutine and lock-free; each read loads one
//     immutable snapshot and never observes a partially applied commit
//
// INVARIANTS:
//   - the commit log is the only source of truth; indexes are rebuilt
//     from it on Open
//   - commit timestamps strictly increase in log order
//   - per id, history versions are 1..n with no gaps
type Engine struct {
	mu    sync.Mutex // serializes commits
	state atomic.Pointer[state]

	log       CommitLog
	clock     *Clock
	revisions RevisionGenerator
	validator Validator
	metrics   *metrics
	closed    atomic.Bool
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithClock sets the clock used to assign commit timestamps.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithTimeSource is shorthand for WithClock(NewClock(now)).
func WithTimeSource(now TimeSource) Option {
	return func(e *Engine) {
		e.clock = NewClock(now)
	}
}

// WithRevisionGenerator sets the generator for commits submitted without
// a revision. Default: UUIDv7Generator.
func WithRevisionGenerator(g RevisionGenerator) Option {
	return func(e *Engine) {
		e.revisions = g
	}
}

// WithValidator installs an entry validator (e.g. schema.Set).
func WithValidator(v Validator) Option {
	return func(e *Engine) {
		e.validator = v
	}
}

// WithRegisterer registers the engine's metrics with reg.
// Without it metrics are still collected but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.metrics = newMetrics(reg)
	}
}

// Open creates an Engine over log and rebuilds its indexes by replaying
// every commit in the log.
//
// The engine takes ownership of log: Close closes it.
func Open(ctx context.Context, log CommitLog, opts ...Option) (*Engine, error) {
	e := &Engine{
		log:       log,
		revisions: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = NewClock(nil)
	}
	if e.metrics == nil {
		e.metrics = newMetrics(nil)
	}

	commits, err := log.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("open engine: load log: %w", err)
	}

	st, err := rebuild(commits)
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}
	e.state.Store(st)
	e.clock.Observe(st.lastTS)
	e.metrics.objects.Set(float64(st.current.Len()))

	slog.Info("engine opened",
		"commits", st.commits.Len(),
		"objects", st.current.Len(),
		"revision", st.head,
	)
	return e, nil
}

// New creates an Engine over a fresh MemoryLog.
func New(opts ...Option) *Engine {
	e, err := Open(context.Background(), NewMemoryLog(), opts...)
	if err != nil {
		// An empty in-memory log cannot fail to load
		panic(err)
	}
	return e
}

// Close closes the commit log. Further commits fail with ErrClosed;
// reads keep answering from the last snapshot.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Swap(true) {
		return nil
	}
	return e.log.Close()
}

// snapshot returns the currently published state.
func (e *Engine) snapshot() *state {
	return e.state.Load()
}

// rebuild replays a log into fresh indexes.
//
// The log is trusted for entry versions but its ordering is checked:
// timestamps must strictly increase and each parent must be the previous
// commit.
func rebuild(commits []*record.Commit) (*state, error) {
	st := newState()
	for i, c := range commits {
		if i > 0 && c.Timestamp <= st.lastTS {
			return nil, fmt.Errorf("corrupt log: commit %s at position %d has timestamp %d, not after %d",
				c.Revision, i, c.Timestamp, st.lastTS)
		}
		if c.ParentRevision != st.head {
			return nil, fmt.Errorf("corrupt log: commit %s at position %d has parent %s, expected %s",
				c.Revision, i, c.ParentRevision, st.head)
		}
		st = st.apply(c)
	}
	return st, nil
}
