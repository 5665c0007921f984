// Package apperr defines the recoverable failure kinds raised by the game
// engine and how they surface over HTTP.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is a machine-readable failure category.
type Kind string

const (
	KindAccessDenied       Kind = "ACCESS_DENIED"
	KindActionNotPermitted Kind = "ACTION_NOT_PERMITTED"
	KindNotFound           Kind = "NOT_FOUND"
	KindAlreadyExists      Kind = "ALREADY_EXISTS"
	KindIncomplete         Kind = "INCOMPLETE"
)

// Error is a domain error carrying a kind and a human-readable message.
type Error struct {
	Kind     Kind
	Message  string
	Nickname string // set for AlreadyExists on nickname collisions
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is comparisons.
var (
	ErrAccessDenied       = &Error{Kind: KindAccessDenied}
	ErrActionNotPermitted = &Error{Kind: KindActionNotPermitted}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrAlreadyExists      = &Error{Kind: KindAlreadyExists}
	ErrIncomplete         = &Error{Kind: KindIncomplete}
)

func AccessDenied(message string) *Error {
	return &Error{Kind: KindAccessDenied, Message: message}
}

func NotPermitted(message string) *Error {
	return &Error{Kind: KindActionNotPermitted, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// AlreadyExists reports a nickname collision within a room.
func AlreadyExists(message, nickname string) *Error {
	return &Error{Kind: KindAlreadyExists, Message: message, Nickname: nickname}
}

func Incomplete(message string) *Error {
	return &Error{Kind: KindIncomplete, Message: message}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an error to the response status code. Unknown errors are
// internal failures.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAccessDenied:
		return http.StatusForbidden
	case KindActionNotPermitted, KindAlreadyExists:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindIncomplete:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
