package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a domain error carrying the HTTP status code it maps to at the
// boundary. Services raise these; handlers translate them one-to-one into
// responses.
type Error struct {
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with the given HTTP status and message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(status int, format string, args ...interface{}) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrUIDExhausted signals that every order UID in [000, 999] is taken.
// The 1000-order capacity is a hard limit of the UID scheme.
var ErrUIDExhausted = New(http.StatusInternalServerError, "no free order UID: 1000-order capacity reached")

// ErrConflict signals a storage uniqueness violation (duplicate order UID).
// Callers are expected to retry allocation rather than surface it raw.
var ErrConflict = New(http.StatusConflict, "order UID already taken")

// InvalidInput reports a malformed request payload.
func InvalidInput(format string, args ...interface{}) *Error {
	return Newf(http.StatusBadRequest, format, args...)
}

// NotFound reports a missing food, order or UID.
func NotFound(format string, args ...interface{}) *Error {
	return Newf(http.StatusNotFound, format, args...)
}

// InsufficientStock reports that a status transition would drive a food's
// quantity below zero.
func InsufficientStock(foodName string) *Error {
	return Newf(http.StatusBadRequest, "insufficient quantity for food: %s", foodName)
}

// GatewayUnavailable reports an exhausted retry budget against the payment
// provider. The failing call is named so it is never surfaced raw.
func GatewayUnavailable(call string, err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("payment gateway unavailable during %s", call),
		Err:     err,
	}
}

// GatewayError reports the payment provider rejecting a call.
func GatewayError(call string, err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("payment gateway rejected %s", call),
		Err:     err,
	}
}

// StatusOf extracts the HTTP status carried by err, defaulting to 500 for
// anything that is not a domain error.
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
