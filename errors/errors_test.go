package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail-go/codes"
)

func TestWithCode(t *testing.T) {
	t.Parallel()

	err := WithCode(errors.New("relation does not exist"), codes.UndefinedTable)
	assert.Equal(t, codes.UndefinedTable, GetCode(err))

	wrapped := fmt.Errorf("query failed: %w", err)
	assert.Equal(t, codes.UndefinedTable, GetCode(wrapped))

	assert.Equal(t, codes.Uncategorized, GetCode(errors.New("bare")))
	assert.Nil(t, WithCode(nil, codes.Internal))
}

func TestWithSeverity(t *testing.T) {
	t.Parallel()

	err := WithSeverity(errors.New("shutting down"), LevelFatal)
	assert.Equal(t, LevelFatal, GetSeverity(err))
	assert.Equal(t, Severity(""), GetSeverity(errors.New("bare")))
	assert.Equal(t, LevelError, DefaultSeverity(""))
	assert.Equal(t, LevelFatal, DefaultSeverity(LevelFatal))
}

func TestFieldDecorators(t *testing.T) {
	t.Parallel()

	base := errors.New("duplicate key value")
	err := WithConstraintName(WithHint(WithDetail(base, "Key (id)=(1) already exists."), "delete the row first"), "users_pkey")

	assert.Equal(t, "Key (id)=(1) already exists.", GetDetail(err))
	assert.Equal(t, "delete the row first", GetHint(err))
	assert.Equal(t, "users_pkey", GetConstraintName(err))
	assert.Equal(t, base.Error(), err.Error())
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	err := WithSeverity(WithCode(errors.New("boom"), codes.Internal), LevelPanic)
	flat := Flatten(err)
	assert.Equal(t, codes.Internal, flat.Code)
	assert.Equal(t, LevelPanic, flat.Severity)
	assert.Equal(t, "boom", flat.Message)

	flat = Flatten(nil)
	assert.Equal(t, LevelFatal, flat.Severity)
	require.NotEmpty(t, flat.Message)
}

func TestServerError(t *testing.T) {
	t.Parallel()

	server := &Error{
		Code:     codes.UniqueViolation,
		Message:  "duplicate key value violates unique constraint",
		Severity: LevelError,
	}

	var target *Error
	require.ErrorAs(t, fmt.Errorf("insert: %w", server), &target)
	assert.Equal(t, codes.UniqueViolation, target.Code)
}
