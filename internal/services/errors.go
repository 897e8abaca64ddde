package services

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map them to status codes with errors.Is; the
// message of the wrapping *Error is safe to show to the caller.
var (
	ErrValidation          = errors.New("validation failed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrNotFoundOrProcessed = errors.New("not found or already processed")
	ErrConflict            = errors.New("conflict")
	ErrChatUnavailable     = errors.New("chat unavailable")
	ErrRateLimited         = errors.New("rate limited")
)

// Error carries a caller-facing message and one of the kinds above
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

func forbidden(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

func notFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

// errNotFoundOrProcessed is returned when a business-state guard fails, so
// out-of-scope complaints look the same as missing ones
var errNotFoundOrProcessed = &Error{Kind: ErrNotFoundOrProcessed, Msg: "Complaint not found or already processed"}
