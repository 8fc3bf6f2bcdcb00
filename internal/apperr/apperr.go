// Package apperr defines the structured error kinds shared by the core
// packages. Callers branch on Kind (or on a package sentinel via errors.Is),
// never on message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP boundary.
type Kind string

const (
	KindBadArgument      Kind = "bad_argument"
	KindInvalidFormat    Kind = "invalid_format"
	KindUnauthenticated  Kind = "unauthenticated"
	KindForbidden        Kind = "forbidden"
	KindDuplicate        Kind = "duplicate"
	KindNotFound         Kind = "not_found"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindConflict         Kind = "conflict"
	KindInternal         Kind = "internal"
)

// Error is a structured error carrying a kind, a stable machine code and a
// human readable message.
type Error struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches errors with the same kind, code and message, so a copy made by
// WithDetails still matches its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code && e.Message == t.Message
}

// New creates an Error. Package level sentinels are built with New and must
// not be mutated afterwards.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates an Error around cause.
func Wrap(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, cause: cause}
}

// WithDetails returns a copy of e carrying details, leaving e untouched.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for unstructured errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func BadArgument(code, message string) *Error {
	return New(KindBadArgument, code, message)
}

func InvalidFormat(code, message string) *Error {
	return New(KindInvalidFormat, code, message)
}

func Unauthenticated(code, message string) *Error {
	return New(KindUnauthenticated, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func NotFound(resource string) *Error {
	return New(KindNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", resource))
}

func Duplicate(resource string) *Error {
	return New(KindDuplicate, "ALREADY_EXISTS", fmt.Sprintf("%s already exists", resource))
}

func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, "INTERNAL_ERROR", message, cause)
}
