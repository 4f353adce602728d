package errors

import "errors"

// WithDetail decorates the error with Postgres error details.
func WithDetail(err error, detail string) error {
	if err == nil {
		return nil
	}

	return &withDetail{cause: err, detail: detail}
}

// GetDetail returns the Postgres detail inside the given error. If no detail
// is present an empty string is returned.
func GetDetail(err error) string {
	if d, ok := err.(*withDetail); ok {
		return d.detail
	}

	if n := errors.Unwrap(err); n != nil {
		return GetDetail(n)
	}

	return ""
}

type withDetail struct {
	cause  error
	detail string
}

func (w *withDetail) Error() string { return w.cause.Error() }
func (w *withDetail) Unwrap() error { return w.cause }

// WithHint decorates the error with a Postgres error hint.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}

	return &withHint{cause: err, hint: hint}
}

// GetHint returns the Postgres hint inside the given error. If no hint is
// present an empty string is returned.
func GetHint(err error) string {
	if h, ok := err.(*withHint); ok {
		return h.hint
	}

	if n := errors.Unwrap(err); n != nil {
		return GetHint(n)
	}

	return ""
}

type withHint struct {
	cause error
	hint  string
}

func (w *withHint) Error() string { return w.cause.Error() }
func (w *withHint) Unwrap() error { return w.cause }

// WithConstraintName decorates the error with a Postgres constraint name.
func WithConstraintName(err error, constraint string) error {
	if err == nil {
		return nil
	}

	return &withConstraint{cause: err, constraint: constraint}
}

// GetConstraintName returns the Postgres constraint name inside the given error.
func GetConstraintName(err error) string {
	if c, ok := err.(*withConstraint); ok {
		return c.constraint
	}

	if n := errors.Unwrap(err); n != nil {
		inner := GetConstraintName(n)
		if inner != "" {
			return inner
		}
	}

	return ""
}

type withConstraint struct {
	cause      error
	constraint string
}

func (w *withConstraint) Error() string { return w.cause.Error() }
func (w *withConstraint) Unwrap() error { return w.cause }
