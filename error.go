package qail

import (
	"errors"
	"fmt"

	qailerr "github.com/qail-io/qail-go/errors"
	"github.com/qail-io/qail-go/pkg/ast"
)

// Sentinel errors returned by the driver surface. Server-originated errors
// are returned as [*errors.Error] carrying the full decoded ErrorResponse and
// can be unwrapped with [AsServerError].
var (
	// ErrConnClosed is returned when an operation is issued on a closed or
	// failed connection.
	ErrConnClosed = errors.New("connection closed")
	// ErrNotReady is returned when a command is issued before the connection
	// reached the ready-for-query boundary.
	ErrNotReady = errors.New("connection is not ready for a command")
	// ErrNoRows is returned by FetchOne when the result set is empty.
	ErrNoRows = errors.New("no rows in result set")
	// ErrPasswordRequired is returned when the server requests password
	// authentication but no password has been configured.
	ErrPasswordRequired = errors.New("server requested a password but none is configured")
	// ErrUnsupportedAuth is returned when the server requests an
	// authentication method the driver does not implement.
	ErrUnsupportedAuth = errors.New("unsupported authentication method")
	// ErrScramFailure is returned when the SCRAM exchange fails, notably on a
	// server signature mismatch.
	ErrScramFailure = errors.New("SCRAM-SHA-256 exchange failed")
	// ErrTransactionAborted is returned when a command is issued while the
	// server transaction is in the failed state. Only a rollback is accepted.
	ErrTransactionAborted = errors.New("current transaction is aborted")
	// ErrTimeout is returned when a query exceeded its read deadline. The
	// connection is closed afterwards, the response stream is at an undefined
	// boundary.
	ErrTimeout = errors.New("query deadline exceeded")
	// ErrPoolExhausted is returned when no pooled connection became available
	// within the borrow deadline.
	ErrPoolExhausted = errors.New("connection pool exhausted")
	// ErrColumnIndexOutOfBounds is returned by row accessors for column
	// indices outside the row descriptor.
	ErrColumnIndexOutOfBounds = errors.New("column index out of bounds")
	// ErrNullValue is returned by typed row accessors when the column holds
	// SQL NULL.
	ErrNullValue = errors.New("column value is NULL")
	// ErrTypeDecode is returned when column bytes cannot be parsed into the
	// requested target type.
	ErrTypeDecode = errors.New("unable to decode column value")
	// ErrInvalidCommand mirrors [ast.ErrInvalidCommand] for callers matching
	// on the driver package.
	ErrInvalidCommand = ast.ErrInvalidCommand
	// ErrProtocol is returned when a backend frame cannot be interpreted and
	// the connection can no longer be safely used.
	ErrProtocol = errors.New("protocol violation")
)

// AsServerError unwraps the given error as a server-originated error carrying
// the decoded ErrorResponse fields. Server errors do not taint the
// connection, the driver has already consumed through ReadyForQuery when one
// is returned.
func AsServerError(err error) (*qailerr.Error, bool) {
	var server *qailerr.Error
	if errors.As(err, &server) {
		return server, true
	}

	return nil, false
}

// newTypeDecodeError annotates a decode failure with the column position and
// the requested target type.
func newTypeDecodeError(column int, target string, cause error) error {
	if cause != nil {
		return fmt.Errorf("column %d as %s: %v: %w", column, target, cause, ErrTypeDecode)
	}

	return fmt.Errorf("column %d as %s: %w", column, target, ErrTypeDecode)
}
