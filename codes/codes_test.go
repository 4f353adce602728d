package codes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClass(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "23", UniqueViolation.Class())
	assert.Equal(t, "42", UndefinedTable.Class())
	assert.Equal(t, "", Code("").Class())
}

func TestClassPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, IsConnectionException(ConnectionFailure))
	assert.False(t, IsConnectionException(UniqueViolation))

	assert.True(t, IsIntegrityConstraintViolation(ForeignKeyViolation))
	assert.True(t, IsIntegrityConstraintViolation(UniqueViolation))
	assert.False(t, IsIntegrityConstraintViolation(Syntax))

	assert.True(t, IsInvalidTransactionState(InFailedSQLTransaction))
	assert.True(t, IsOperatorIntervention(QueryCanceled))
	assert.False(t, IsOperatorIntervention(DeadlockDetected))
}
