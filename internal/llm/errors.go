package llm

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind discriminates classification failures. Calling code branches on
// the kind, never on the concrete cause.
type ErrorKind string

// Classification error kinds.
const (
	KindValidation ErrorKind = "VALIDATION_ERROR"
	KindRateLimit  ErrorKind = "RATE_LIMIT_ERROR"
	KindAuth       ErrorKind = "AUTH_ERROR"
	KindNetwork    ErrorKind = "NETWORK_ERROR"
	KindTimeout    ErrorKind = "TIMEOUT_ERROR"
	KindServer     ErrorKind = "SERVER_ERROR"
	KindParse      ErrorKind = "PARSE_ERROR"
	KindUnknown    ErrorKind = "UNKNOWN_ERROR"
)

// Error is the typed failure surfaced by the classification client.
// RetryAfter is only set for KindRateLimit and tells the caller how long
// until the local quota frees a slot.
type Error struct {
	Err        error
	Kind       ErrorKind
	RetryAfter time.Duration
	retryable  bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func newRetryableError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err, retryable: true}
}

// KindOf extracts the error kind from err, falling back to KindUnknown for
// errors that did not originate in this package.
func KindOf(err error) ErrorKind {
	var clsErr *Error
	if errors.As(err, &clsErr) {
		return clsErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given classification error kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
