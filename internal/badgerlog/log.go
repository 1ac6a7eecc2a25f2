package badgerlog

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/roach88/edb/internal/record"
)

const (
	prefixCommit = "commit:"
	prefixRev    = "rev:"
	keyLastSeq   = "meta:seq"
)

// Log is an append-only commit log stored in BadgerDB.
// Safe for concurrent use; appends are serialized by badger transactions.
type Log struct {
	db  *badger.DB
	dir string
}

// Option configures Open.
type Option func(*options)

type options struct {
	inMemory bool
	logger   *slog.Logger
}

// InMemory keeps the log in memory only. dir is ignored.
func InMemory() Option {
	return func(o *options) { o.inMemory = true }
}

// WithLogger routes badger's internal logging to logger.
// By default badger logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Open opens or creates a log in dir.
func Open(dir string, opts ...Option) (*Log, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	bopts := badger.DefaultOptions("").
		WithLogger(nil).                // Disable verbose logging
		WithValueLogFileSize(64 << 20). // 64MB value log
		WithNumVersionsToKeep(1).       // Keys are written once
		WithCompactL0OnClose(true).     // Compact on close
		WithNumCompactors(2).           // Background compaction workers
		WithBlockCacheSize(32 << 20).   // 32MB block cache
		WithIndexCacheSize(16 << 20)    // 16MB index cache
	if o.logger != nil {
		bopts = bopts.WithLogger(slogAdapter{logger: o.logger})
	}

	if o.inMemory {
		bopts = bopts.WithInMemory(true)
		dir = ""
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		bopts = bopts.WithDir(dir).WithValueDir(dir)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger log %s: %w", dir, err)
	}
	return &Log{db: db, dir: dir}, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return WrapError(l.db.Close())
}

// Dir returns the directory the log lives in ("" when in memory).
func (l *Log) Dir() string {
	return l.dir
}

func commitKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixCommit, seq))
}

func revKey(rev uuid.UUID) []byte {
	return []byte(prefixRev + rev.String())
}

func encodeSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

// Append writes an accepted commit under the next sequence number.
// A commit whose revision is already present is rejected with
// ErrRevisionExists and nothing is written.
func (l *Log) Append(ctx context.Context, c *record.Commit) error {
	return l.AppendAll(ctx, []*record.Commit{c})
}

// AppendAll writes commits in order in one transaction; on error none of
// them is stored. A batch too large for a single Badger transaction fails
// with badger.ErrTxnTooBig.
func (l *Log) AppendAll(ctx context.Context, commits []*record.Commit) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded := make([][]byte, len(commits))
	for i, c := range commits {
		data, err := encodeCommit(c)
		if err != nil {
			return fmt.Errorf("append commit: %w", err)
		}
		encoded[i] = data
	}

	err := l.db.Update(func(txn *badger.Txn) error {
		last, err := lastSeq(txn)
		if err != nil {
			return err
		}
		for i, c := range commits {
			// Pending writes are visible to Get, so duplicates inside the
			// batch are caught as well.
			if _, err := txn.Get(revKey(c.Revision)); err == nil {
				return fmt.Errorf("append commit %s: %w", c.Revision, ErrRevisionExists)
			} else if !IsNotFound(err) {
				return err
			}

			seq := last + uint64(i) + 1
			if err := txn.Set(commitKey(seq), encoded[i]); err != nil {
				return err
			}
			if err := txn.Set(revKey(c.Revision), encodeSeq(seq)); err != nil {
				return err
			}
		}
		if len(commits) == 0 {
			return nil
		}
		return txn.Set([]byte(keyLastSeq), encodeSeq(last+uint64(len(commits))))
	})
	return WrapError(err)
}

// lastSeq returns the sequence number of the newest commit, 0 for an
// empty log.
func lastSeq(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get([]byte(keyLastSeq))
	if IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var seq uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("%w: bad sequence counter", ErrCorrupted)
		}
		seq = binary.BigEndian.Uint64(val)
		return nil
	})
	return seq, err
}

// CountCommits returns the number of commits in the log. Sequence numbers
// start at 1 and have no gaps, so this is the newest sequence number.
func (l *Log) CountCommits(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n uint64
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		n, err = lastSeq(txn)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count commits: %w", WrapError(err))
	}
	return int(n), nil
}

// Load returns every commit in append order.
// Returns an empty slice (not nil) for an empty log.
func (l *Log) Load(ctx context.Context) ([]*record.Commit, error) {
	commits := []*record.Commit{}

	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixCommit)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			err := item.Value(func(val []byte) error {
				c, err := decodeCommit(val)
				if err != nil {
					return fmt.Errorf("key %s: %w", item.Key(), err)
				}
				commits = append(commits, c)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load commits: %w", WrapError(err))
	}
	return commits, nil
}

// ReadCommit retrieves a single commit by revision.
// Returns ErrNotFound if the revision is not in the log.
func (l *Log) ReadCommit(ctx context.Context, revision uuid.UUID) (*record.Commit, error) {
	var c *record.Commit
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(revKey(revision))
		if err != nil {
			return err
		}
		var seq uint64
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("%w: bad revision index", ErrCorrupted)
			}
			seq = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return err
		}

		item, err = txn.Get(commitKey(seq))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			c, err = decodeCommit(val)
			return err
		})
	})
	if err != nil {
		return nil, WrapError(err)
	}
	return c, nil
}
