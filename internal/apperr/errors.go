// Package apperr defines the sentinel error kinds shared across the service.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalid marks malformed or missing input, rejected before any side effect.
	ErrInvalid = errors.New("invalid input")
	// ErrNotFound marks a missing project, chat, pool item, artifact, or backing file.
	ErrNotFound = errors.New("not found")
	// ErrPrecondition marks an operation that cannot proceed: a required
	// external tool is unavailable or consent has not been granted.
	ErrPrecondition = errors.New("precondition failed")
)

// Invalidf wraps ErrInvalid with a message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// NotFoundf wraps ErrNotFound with a message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Preconditionf wraps ErrPrecondition with a message.
func Preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrPrecondition}, args...)...)
}

// Message returns the error text with the sentinel prefix stripped, for
// responses that should carry only the detail.
func Message(err error) string {
	s := err.Error()
	for _, sentinel := range []error{ErrInvalid, ErrNotFound, ErrPrecondition} {
		if prefix := sentinel.Error() + ": "; strings.HasPrefix(s, prefix) {
			return strings.TrimPrefix(s, prefix)
		}
	}
	return s
}
