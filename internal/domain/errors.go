package domain

import "errors"

// Error kinds. Every error returned across the service boundary wraps one of
// these so the transport layer can choose a status code with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrConflict         = errors.New("conflict")
)

// Error is a domain error with a caller-facing message and a kind. Code
// overrides the error code derived from the kind when set.
type Error struct {
	Kind    error
	Code    string
	Message string
}

// NewError creates a domain error of the given kind
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the error kind
func (e *Error) Unwrap() error {
	return e.Kind
}
