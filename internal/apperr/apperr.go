// Package apperr defines the error taxonomy shared by the grading core.
// Checkers and the scorer are pure and never produce these; errors
// originate where caller intent and external state meet (session,
// aggregator, stores, handlers).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: malformed or missing input from the caller (400).
	KindValidation
	// KindNotFound: exercise/assessment/attempt absent. Ownership
	// violations are reported as not-found so existence never leaks.
	KindNotFound
	// KindState: operation invalid in the current lifecycle state, e.g.
	// completing an already-completed attempt (409).
	KindState
	// KindRecorder: durable logging of a finalized session failed.
	// Non-fatal; surfaced as a warning, never rolls back a result.
	KindRecorder
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Statef(format string, args ...any) error {
	return &Error{Kind: KindState, Msg: fmt.Sprintf(format, args...)}
}

func Recorder(msg string, err error) error {
	return &Error{Kind: KindRecorder, Msg: msg, Err: err}
}

// Wrap attaches a kind to an underlying error, keeping it unwrappable.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsState(err error) bool      { return KindOf(err) == KindState }

// HTTPStatus maps an error to the status code the API layer should emit.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
