// Package domainerrors defines the coded error type shared by services,
// stores and transport.
//
// Services return *Error values; transport maps the Code to a status via
// pkg/platform/httputil. Stores should prefer the facts in
// pkg/platform/sentinel and let services translate them.
package domainerrors

import (
	"errors"
)

// Code classifies a domain error for clients and for status mapping.
type Code string

// Generic codes.
const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_error"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal_error"
)

// Storefront codes.
const (
	// CodeInvalidQuantity: a requested quantity was non-numeric or not positive.
	CodeInvalidQuantity Code = "invalid_quantity"
	// CodeCheckoutNotAllowed: checkout preconditions failed (empty cart, no identity,
	// or an order is already waiting on its receipt).
	CodeCheckoutNotAllowed Code = "checkout_not_allowed"
	// CodeCheckoutInProgress: a checkout is already submitting or rendering.
	CodeCheckoutInProgress Code = "checkout_in_progress"
	// CodeOrderPersistence: the order store rejected or failed the write.
	CodeOrderPersistence Code = "order_persistence_error"
	// CodeReceiptRender: the order was placed but its receipt could not be produced.
	CodeReceiptRender Code = "receipt_render_error"
	// CodeIdentityUnresolved: the identity gate has not resolved yet.
	CodeIdentityUnresolved Code = "identity_unresolved"
)

// Error is a coded error with a client-safe message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports equality on code and message so tests can compare against
// dErrors.New(code, msg) with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error. The cause is kept
// for logging and errors.Is but never rendered to clients.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// As extracts the outermost *Error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost *Error, or CodeInternal.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
