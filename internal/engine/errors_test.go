package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/edb/internal/query"
	"github.com/roach88/edb/internal/record"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{nil, ""},
		{&NotFoundError{ID: "/x"}, ErrCodeNotFound},
		{&VersionConflictError{ID: "/x"}, ErrCodeVersionConflict},
		{&DuplicateIDError{ID: "/x"}, ErrCodeDuplicateID},
		{&CommitAlreadyAppliedError{}, ErrCodeAlreadyApplied},
		{&record.ValidationError{Message: "bad"}, ErrCodeValidation},
		{&query.ParseError{Input: "x", Message: "bad"}, ErrCodeParse},
		{fmt.Errorf("append: %w", &DuplicateIDError{ID: "/x"}), ErrCodeDuplicateID},
		{errors.New("disk"), ErrCodeInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CodeOf(tt.err), "%v", tt.err)
	}
}

func TestErrorMessages(t *testing.T) {
	rev := uuid.MustParse("00000000-0000-7000-8000-000000000001")

	assert.Equal(t, `NOT_FOUND: object "/x" not found`, (&NotFoundError{ID: "/x"}).Error())
	assert.Equal(t, "NOT_FOUND: revision "+rev.String()+" not found", (&NotFoundError{Revision: rev}).Error())
	assert.Equal(t,
		`VERSION_CONFLICT: object "/x" was modified (expected version 1, stored version 3)`,
		(&VersionConflictError{ID: "/x", ExpectedVersion: 1, StoredVersion: 3}).Error())
	assert.Contains(t, (&CommitAlreadyAppliedError{Revision: rev}).Error(), rev.String())
}
