package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/edb/internal/badgerlog"
	"github.com/roach88/edb/internal/engine"
	"github.com/roach88/edb/internal/record"
	"github.com/roach88/edb/internal/schema"
	"github.com/roach88/edb/internal/store"
)

// session is an engine opened over the configured commit log.
type session struct {
	engine *engine.Engine

	// store is the SQLite log, nil for other backends.
	store *store.Store
}

// openSession opens the database named by opts and replays its log.
// With mustExist, a missing database is a command error instead of
// being created empty.
func openSession(ctx context.Context, opts *RootOptions, mustExist bool) (*session, error) {
	if err := checkDatabase(opts, mustExist); err != nil {
		return nil, err
	}

	var engOpts []engine.Option
	if opts.Schema != "" {
		set, err := schema.Load(opts.Schema)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
		}
		slog.Debug("schema loaded", "path", opts.Schema, "prefixes", set.Len())
		engOpts = append(engOpts, engine.WithValidator(set))
	}

	log, st, err := openLog(opts)
	if err != nil {
		return nil, err
	}
	s := &session{store: st}

	eng, err := engine.Open(ctx, log, engOpts...)
	if err != nil {
		_ = log.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	s.engine = eng
	return s, nil
}

// checkDatabase reports a command error when no database is configured,
// or with mustExist when the configured one does not exist yet.
func checkDatabase(opts *RootOptions, mustExist bool) error {
	if opts.Database == "" {
		return NewExitError(ExitCommandError, "no database: set --db, EDB_DB or db in edb.yaml")
	}
	if mustExist {
		if _, err := os.Stat(opts.Database); err != nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
		}
	}
	return nil
}

// commitLog is a commit log that also answers single reads without a
// replay. Both backends implement it.
type commitLog interface {
	engine.CommitLog
	AppendAll(ctx context.Context, commits []*record.Commit) error
	ReadCommit(ctx context.Context, revision uuid.UUID) (*record.Commit, error)
	CountCommits(ctx context.Context) (int, error)
}

var (
	_ commitLog = (*store.Store)(nil)
	_ commitLog = (*badgerlog.Log)(nil)
)

// isMissingCommit reports whether err is a log's "no such revision" error.
func isMissingCommit(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || badgerlog.IsNotFound(err)
}

// openLog opens the commit log for the configured backend. The returned
// store is the same log when the backend is SQLite, nil otherwise.
func openLog(opts *RootOptions) (commitLog, *store.Store, error) {
	switch opts.Backend {
	case BackendBadger:
		l, err := badgerlog.Open(opts.Database, badgerlog.WithLogger(slog.Default()))
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		return l, nil, nil
	default:
		st, err := store.Open(opts.Database)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		return st, st, nil
	}
}

func (s *session) Close() {
	if err := s.engine.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// newFormatter builds the formatter for cmd's output streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}
