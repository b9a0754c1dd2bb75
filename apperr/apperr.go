// Package apperr defines the error kinds shared by every domain package.
// Domain sentinels wrap one of these kinds so the transport layer can map a
// failure to a response without knowing each package's errors.
package apperr

import (
	"errors"
	"strings"
)

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized marks an actor that is not the required party or owner.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound marks a referenced id with no row behind it.
	ErrNotFound = errors.New("not found")
	// ErrExternal marks a failed call to a third-party service.
	ErrExternal = errors.New("external service failed")
	// ErrUnauthenticated marks a request without a valid identity.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Error is a domain error with a user-facing message and a kind.
type Error struct {
	kind error
	msg  string
}

// New returns an error that prints msg and matches kind under errors.Is.
func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Kind returns the kind wrapped by err, or nil when err carries none.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrUnauthorized, ErrNotFound, ErrExternal, ErrUnauthenticated} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Message returns the text to show a user for err: the message of the first
// *Error in its chain without its "pkg: " prefix. Errors without one are
// returned as is.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if pkg, rest, ok := strings.Cut(e.msg, ": "); ok && isPackageName(pkg) {
		return rest
	}
	return e.msg
}

func isPackageName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
