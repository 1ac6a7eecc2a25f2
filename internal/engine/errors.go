package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/edb/internal/query"
	"github.com/roach88/edb/internal/record"
)

// ErrorCode categorizes errors reported by the engine.
// Codes are stable and used as metric labels and in CLI output.
type ErrorCode string

const (
	// ErrCodeNotFound indicates an object or revision is absent.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeVersionConflict indicates a stale update whose values differ
	// from the stored ones.
	ErrCodeVersionConflict ErrorCode = "VERSION_CONFLICT"

	// ErrCodeDuplicateID indicates an insert collides with a live record.
	ErrCodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// ErrCodeAlreadyApplied indicates re-submission of a persisted commit.
	ErrCodeAlreadyApplied ErrorCode = "COMMIT_ALREADY_APPLIED"

	// ErrCodeValidation indicates a malformed commit.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeParse indicates a malformed query string.
	ErrCodeParse ErrorCode = "PARSE"

	// ErrCodeInternal covers log I/O and anything else unexpected.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// ValidationError reports a malformed commit or entry.
type ValidationError = record.ValidationError

// ParseError reports a malformed query string.
type ParseError = query.ParseError

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("engine is closed")

// NotFoundError reports that an update targets an id with no live entry,
// or that a requested revision does not exist.
type NotFoundError struct {
	ID       string
	Revision uuid.UUID
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: object %q not found", ErrCodeNotFound, e.ID)
	}
	return fmt.Sprintf("%s: revision %s not found", ErrCodeNotFound, e.Revision)
}

// VersionConflictError reports an update whose prior-known version is
// stale and whose attributes differ from the stored ones.
type VersionConflictError struct {
	ID              string
	ExpectedVersion int64 // version the caller last saw
	StoredVersion   int64 // version currently stored
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s: object %q was modified (expected version %d, stored version %d)",
		ErrCodeVersionConflict, e.ID, e.ExpectedVersion, e.StoredVersion)
}

// DuplicateIDError reports an insert of an id that is already live.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s: object %q already exists", ErrCodeDuplicateID, e.ID)
}

// CommitAlreadyAppliedError reports re-submission of a commit that is
// already in the log. Revision names the persisted commit.
type CommitAlreadyAppliedError struct {
	Revision uuid.UUID
}

func (e *CommitAlreadyAppliedError) Error() string {
	return fmt.Sprintf("%s: commit already applied as revision %s", ErrCodeAlreadyApplied, e.Revision)
}

// CodeOf returns the error code for err, or "" for nil.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var (
		nf *NotFoundError
		vc *VersionConflictError
		di *DuplicateIDError
		aa *CommitAlreadyAppliedError
		ve *ValidationError
		pe *ParseError
	)
	switch {
	case errors.As(err, &nf):
		return ErrCodeNotFound
	case errors.As(err, &vc):
		return ErrCodeVersionConflict
	case errors.As(err, &di):
		return ErrCodeDuplicateID
	case errors.As(err, &aa):
		return ErrCodeAlreadyApplied
	case errors.As(err, &ve):
		return ErrCodeValidation
	case errors.As(err, &pe):
		return ErrCodeParse
	default:
		return ErrCodeInternal
	}
}

// IsNotFound returns true if err is a *NotFoundError.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsVersionConflict returns true if err is a *VersionConflictError.
func IsVersionConflict(err error) bool {
	return CodeOf(err) == ErrCodeVersionConflict
}

// IsDuplicateID returns true if err is a *DuplicateIDError.
func IsDuplicateID(err error) bool {
	return CodeOf(err) == ErrCodeDuplicateID
}

// IsAlreadyApplied returns true if err is a *CommitAlreadyAppliedError.
func IsAlreadyApplied(err error) bool {
	return CodeOf(err) == ErrCodeAlreadyApplied
}

// IsValidation returns true if err is a *ValidationError.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}
