package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error and decides its HTTP status
type Kind int

const (
	KindPersistence Kind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindValidation
	KindInvalidTransition
	KindConflict
	KindUnavailable
)

// Error is the single error type returned by services to the HTTP layer.
// Message is safe to show to API clients; Err is only ever logged.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a response status
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindInvalidTransition:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the client may safely repeat the call
func (e *Error) Retryable() bool {
	return e.Kind == KindUnavailable
}

func Authentication(code, message string) *Error {
	return &Error{Kind: KindAuthentication, Code: code, Message: message}
}

func Authorization(code, message string) *Error {
	return &Error{Kind: KindAuthorization, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// InvalidTransition reports an illegal status change, naming both ends
func InvalidTransition(current, requested string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Code:    "INVALID_TRANSITION",
		Message: fmt.Sprintf("Mudança de status inválida: de %q para %q.", current, requested),
	}
}

// Persistence wraps a store failure behind a generic message
func Persistence(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Code: "DATABASE_ERROR", Message: message, Err: err}
}

// Unavailable wraps a timed-out read that the client may retry
func Unavailable(message string, err error) *Error {
	return &Error{Kind: KindUnavailable, Code: "TEMPORARILY_UNAVAILABLE", Message: message, Err: err}
}

// As extracts an *Error from err. Anything else is treated as a persistence failure.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Persistence("Erro interno no servidor.", err)
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
