package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in credential lifecycle terms, not HTTP terms.
type Code string

const (
	// CodeMisconfigured means the server is missing required configuration
	// (for example the shared issuing secret).
	CodeMisconfigured Code = "misconfigured"
	// CodeBadRequest means the request payload could not be decoded.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized means the shared secret did not match.
	CodeUnauthorized Code = "unauthorized"
	// CodeInvalidInput means a required field is missing after normalization.
	CodeInvalidInput Code = "invalid_input"
	// CodeValidation means a field is present but violates a size or format limit.
	CodeValidation Code = "validation_failed"
	// CodeConflict means a credential already exists for the code.
	CodeConflict Code = "conflict"
	// CodeNotFound is used by lookups; lifecycle operations report misses as a status instead.
	CodeNotFound Code = "not_found"
	// CodeCorruptRecord means a stored value failed to decode.
	CodeCorruptRecord Code = "corrupt_record"
	// CodeUnavailable means the key-value store could not be reached.
	CodeUnavailable Code = "unavailable"
	CodeInternal    Code = "internal_error"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error in the chain,
// or CodeInternal when the chain carries no domain code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
