package badgerlog

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Log errors that wrap BadgerDB-specific errors.
var (
	ErrNotFound       = errors.New("commit not found")
	ErrRevisionExists = errors.New("revision already in log")
	ErrCorrupted      = errors.New("log corrupted")
	ErrClosed         = errors.New("log is closed")
	ErrConflict       = errors.New("transaction conflict")
)

// WrapError converts BadgerDB errors to log errors.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound
	case errors.Is(err, badger.ErrDBClosed):
		return ErrClosed
	case errors.Is(err, badger.ErrConflict):
		return ErrConflict
	case errors.Is(err, badger.ErrBlockedWrites):
		return fmt.Errorf("write blocked, database may be full: %w", err)
	case errors.Is(err, badger.ErrTruncateNeeded):
		return ErrCorrupted
	default:
		return err
	}
}

// IsNotFound returns true if the error indicates a missing commit.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, badger.ErrKeyNotFound)
}
