package errors

import "github.com/qail-io/qail-go/codes"

// Error contains all Postgres wire protocol error fields as decoded from a
// backend ErrorResponse or NoticeResponse message.
// See https://www.postgresql.org/docs/current/static/protocol-error-fields.html
// for a list of all Postgres error fields, most of which are optional and can
// be used to provide auxiliary error information.
type Error struct {
	Code           codes.Code
	Message        string
	Detail         string
	Hint           string
	Severity       Severity
	Position       int32
	ConstraintName string
	Schema         string
	Table          string
	Column         string
	Source         *Source
}

// Source represents whenever possible the source of a given error.
type Source struct {
	File     string
	Line     int32
	Function string
}

// Error implements the error interface, returning the primary human-readable
// message of the server error.
func (err *Error) Error() string {
	return err.Message
}

// Flatten returns a flattened error which could be used to inspect the
// Postgres error fields attached to the given error chain.
func Flatten(err error) Error {
	if err == nil {
		return Error{
			Code:     codes.Internal,
			Message:  "unknown error, an internal process attempted to throw an error",
			Severity: LevelFatal,
		}
	}

	result := Error{
		Code:           GetCode(err),
		Message:        err.Error(),
		Severity:       DefaultSeverity(GetSeverity(err)),
		ConstraintName: GetConstraintName(err),
		Detail:         GetDetail(err),
		Hint:           GetHint(err),
	}

	return result
}
