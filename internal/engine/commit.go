package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/edb/internal/record"
)

// Commit validates c, assigns it the next timestamp, appends it to the
// log and publishes the updated indexes. Returns the assigned timestamp.
//
// The operation is atomic. On any error nothing is persisted, the indexes
// are unchanged and c is left untouched. On success c is updated in place
// with its revision, parent revision, timestamp, fingerprint and the
// entries as written (assigned versions and timestamps). Deletions of ids
// that were not live are dropped from c.
//
// Submitting a commit that is already in the log fails with
// *CommitAlreadyAppliedError. A commit is recognized either by its
// revision or, for commits without one, by its content fingerprint when
// none of its ids has been written since the identical commit was applied.
func (e *Engine) Commit(ctx context.Context, c *record.Commit) (int64, error) {
	if c == nil {
		return 0, &ValidationError{Message: "nil commit"}
	}

	start := time.Now()
	ts, err := e.commit(ctx, c)
	e.metrics.observeCommit(c, err, time.Since(start))
	if err != nil {
		slog.Debug("commit rejected", "code", CodeOf(err), "error", err)
		return 0, err
	}
	return ts, nil
}

func (e *Engine) commit(ctx context.Context, c *record.Commit) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	st := e.snapshot()

	if err := c.Validate(); err != nil {
		return 0, err
	}
	if c.Revision != uuid.Nil {
		if _, ok := st.revisionIndex(c.Revision); ok {
			return 0, &CommitAlreadyAppliedError{Revision: c.Revision}
		}
	}

	fp, err := record.Fingerprint(c)
	if err != nil {
		return 0, &ValidationError{Message: err.Error()}
	}
	if len(c.IDs()) > 0 {
		if idx, ok := st.fingerprints.Get(fp); ok && !st.touchedSince(c, idx) {
			return 0, &CommitAlreadyAppliedError{Revision: st.commitAt(idx).Revision}
		}
	}

	if err := e.validate(c); err != nil {
		return 0, err
	}

	res, err := detectConflicts(st, c)
	if err != nil {
		return 0, err
	}

	rev := c.Revision
	if rev == uuid.Nil {
		rev = e.revisions.Generate()
		if _, ok := st.revisionIndex(rev); ok {
			return 0, fmt.Errorf("generated revision %s already in log", rev)
		}
	}
	ts := e.clock.Next()

	persisted := &record.Commit{
		Revision:       rev,
		ParentRevision: st.head,
		Timestamp:      ts,
		Fingerprint:    fp,
		Committer:      c.Committer,
		Role:           c.Role,
		DomainID:       c.DomainID,
		ConnectorID:    c.ConnectorID,
		InstanceID:     c.InstanceID,
		ContextID:      c.ContextID,
		Comment:        c.Comment,
		Inserts:        stampEntries(res.inserts, ts),
		Updates:        stampEntries(res.updates, ts),
		Deletions:      res.deletions,
	}

	if err := e.log.Append(ctx, persisted); err != nil {
		return 0, fmt.Errorf("append commit %s: %w", rev, err)
	}

	next := st.apply(persisted)
	e.state.Store(next)

	written := persisted.Clone()
	c.Revision = written.Revision
	c.ParentRevision = written.ParentRevision
	c.Timestamp = written.Timestamp
	c.Fingerprint = written.Fingerprint
	c.Inserts = written.Inserts
	c.Updates = written.Updates
	c.Deletions = written.Deletions

	slog.Debug("commit applied",
		"revision", rev,
		"timestamp", ts,
		"inserts", len(persisted.Inserts),
		"updates", len(persisted.Updates),
		"deletions", len(persisted.Deletions),
	)
	if len(res.skipped) > 0 {
		slog.Debug("deletions skipped, ids not live", "revision", rev, "ids", res.skipped)
	}
	e.metrics.objects.Set(float64(next.current.Len()))
	return ts, nil
}

// validate runs the installed Validator over every insert and update.
func (e *Engine) validate(c *record.Commit) error {
	if e.validator == nil {
		return nil
	}
	check := func(entry record.Entry) error {
		err := e.validator.ValidateEntry(entry)
		if err == nil {
			return nil
		}
		var ve *ValidationError
		if errors.As(err, &ve) {
			return err
		}
		return &ValidationError{ID: entry.ID, Message: err.Error()}
	}

	for _, entry := range c.Inserts {
		if err := check(entry); err != nil {
			return err
		}
	}
	for _, entry := range c.Updates {
		if err := check(entry); err != nil {
			return err
		}
	}
	return nil
}

func stampEntries(entries []record.Entry, ts int64) []record.Entry {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		entries[i].Timestamp = ts
	}
	return entries
}
