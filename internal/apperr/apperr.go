// Package apperr classifies failures so the HTTP layer can turn them into
// responses without inspecting error text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of a failure.
type Kind string

const (
	// KindValidation: the caller sent bad input. Nothing was stored.
	KindValidation Kind = "validation"

	// KindConflict: the request collides with existing state (duplicate
	// email, already checked out today).
	KindConflict Kind = "conflict"

	// KindAuthentication: credentials did not verify. The message never
	// says which field was wrong.
	KindAuthentication Kind = "authentication"

	// KindUnauthenticated: a protected action was called without a session.
	KindUnauthenticated Kind = "unauthenticated"

	// KindStorage: the database (or another backend) failed unexpectedly.
	KindStorage Kind = "storage"
)

// GenericMessage is shown in place of storage fault details.
const GenericMessage = "Something went wrong. Please try again."

// Error carries a Kind, a message safe to show to the user, and the
// underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

// Storage wraps a backend failure. The cause is kept for logging only.
func Storage(err error) *Error {
	return &Error{Kind: KindStorage, Message: GenericMessage, Err: err}
}

// KindOf reports the kind of err. Errors that are not *Error count as
// storage faults.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStorage
}

// Message returns the text to show the user for err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindStorage {
		return appErr.Message
	}
	return GenericMessage
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HTTPStatus maps a kind to the status code used by JSON responses.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuthentication, KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
