// Package apperr carries the error kinds the HTTP boundary maps to status
// codes. Domain code returns these; nothing here is fatal to the process.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnauthenticated  Kind = "Unauthenticated"
	KindPermissionDenied Kind = "PermissionDenied"
	KindInvalidArgument  Kind = "InvalidArgument"
	KindNotFound         Kind = "NotFound"
	KindConflict         Kind = "Conflict"
	KindFailedTransition Kind = "FailedTransition"
	KindInternal         Kind = "Internal"
)

type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(format string, args ...any) *Error {
	return newError(KindUnauthenticated, format, args...)
}

func PermissionDenied(format string, args ...any) *Error {
	return newError(KindPermissionDenied, format, args...)
}

func InvalidArgument(format string, args ...any) *Error {
	return newError(KindInvalidArgument, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func FailedTransition(format string, args ...any) *Error {
	return newError(KindFailedTransition, format, args...)
}

// Internal wraps an unexpected failure; the cause stays available to logs
// via Unwrap while the boundary reports only the message.
func Internal(err error, format string, args ...any) *Error {
	e := newError(KindInternal, format, args...)
	e.err = err
	return e
}

// KindOf extracts the kind from err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
