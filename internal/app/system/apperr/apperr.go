// Package apperr defines the typed failures returned by the moderation core.
//
// Every expected outcome carries a machine-readable Kind and a message that is
// safe to show to the caller. Anything that is not an *Error (a dropped Mongo
// connection, a cancelled context) is an infrastructure failure and is reported
// as KindInternal without its message.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInvalidState Kind = "invalid_state"
	KindForbidden    Kind = "forbidden"
	KindValidation   Kind = "validation"
	KindInternal     Kind = "internal"
)

// Error is a typed moderation failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error // optional cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a typed error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }
func InvalidState(msg string) *Error { return New(KindInvalidState, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }
func Validation(msg string) *Error   { return New(KindValidation, msg) }

// KindOf reports the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-safe message for err. Infrastructure errors get a
// generic message so driver details never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
