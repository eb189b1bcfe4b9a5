package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind tags the reason a reasoning-service evaluation failed.
type ErrorKind string

const (
	KindUnreachable  ErrorKind = "unreachable"
	KindTimeout      ErrorKind = "timeout"
	KindMalformed    ErrorKind = "malformed"
	KindOutOfRange   ErrorKind = "out_of_range"
	KindUnauthorized ErrorKind = "unauthorized"
)

// Error is a reasoning-service failure. The gateway fails closed: it never
// substitutes defaults, the caller decides whether to fall back.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("gateway: %s", e.Kind)
	}
	return fmt.Sprintf("gateway: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from an error chain. Returns ("", false)
// when the chain contains no gateway error.
func KindOf(err error) (ErrorKind, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return "", false
}
