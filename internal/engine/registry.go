package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/edb/internal/record"
)

// LogFactory opens the commit log for one context id.
type LogFactory func(ctx context.Context, contextID string) (CommitLog, error)

// Registry keeps one Engine per context id. Each context has its own log,
// clock and indexes; nothing is shared between contexts.
type Registry struct {
	mu      sync.RWMutex
	factory LogFactory
	opts    []Option
	engines map[string]*Engine
}

// NewRegistry creates a registry that opens logs with factory and engines
// with opts.
//
// opts are shared by every engine, so WithRegisterer must not be passed:
// the second engine would register duplicate collectors.
func NewRegistry(factory LogFactory, opts ...Option) *Registry {
	return &Registry{
		factory: factory,
		opts:    opts,
		engines: make(map[string]*Engine),
	}
}

// Open returns the engine for contextID, opening it on first use.
func (r *Registry) Open(ctx context.Context, contextID string) (*Engine, error) {
	r.mu.RLock()
	e, ok := r.engines[contextID]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[contextID]; ok {
		return e, nil
	}

	log, err := r.factory(ctx, contextID)
	if err != nil {
		return nil, fmt.Errorf("open log for context %q: %w", contextID, err)
	}
	e, err = Open(ctx, log, r.opts...)
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("open context %q: %w", contextID, err)
	}
	r.engines[contextID] = e
	return e, nil
}

// Get returns an already open engine without opening a new one.
func (r *Registry) Get(contextID string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[contextID]
	return e, ok
}

// Commit routes c to the engine of c.ContextID.
func (r *Registry) Commit(ctx context.Context, c *record.Commit) (int64, error) {
	if c == nil {
		return 0, &ValidationError{Message: "nil commit"}
	}
	e, err := r.Open(ctx, c.ContextID)
	if err != nil {
		return 0, err
	}
	return e.Commit(ctx, c)
}

// Contexts returns the ids of the open contexts, sorted.
func (r *Registry) Contexts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close closes one context. Closing an unknown context is a no-op.
func (r *Registry) Close(contextID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.engines[contextID]
	if !ok {
		return nil
	}
	delete(r.engines, contextID)
	return e.Close()
}

// CloseAll closes every open context.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id, e := range r.engines {
		if err := e.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context %q: %w", id, err))
		}
	}
	r.engines = make(map[string]*Engine)
	return errors.Join(errs...)
}
