// Package domainerrors is the caller-facing error taxonomy.
//
// Services return *Error values; transports map Code to a status. Stores never
// build these directly: they return sentinel errors that services translate.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies an error category that callers can act on.
type Code string

const (
	CodeMissingCredential Code = "missing_credential"
	CodeInvalidCredential Code = "invalid_credential"
	CodeExpiredCredential Code = "expired_credential"
	CodeNotFound          Code = "not_found"
	CodeForbidden         Code = "forbidden"
	CodeValidation        Code = "validation_error"
	CodeBadRequest        Code = "bad_request"
	CodeConflict          Code = "conflict"
	CodeRateLimited       Code = "rate_limited"
	CodeStoreUnavailable  Code = "store_unavailable"
	CodeInternal          Code = "internal_error"
)

// Error is a domain error with a stable code and an optional offending field.
type Error struct {
	Code    Code
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Validation reports a bad value for a named input field.
func Validation(field, msg string) error {
	return &Error{Code: CodeValidation, Message: msg, Field: field}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// From returns the outermost domain error in the chain.
func From(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost domain error in err carries code.
func HasCode(err error, code Code) bool {
	de, ok := From(err)
	return ok && de.Code == code
}

// Is is shorthand for HasCode, kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the outermost domain error, or CodeInternal.
func CodeOf(err error) Code {
	if de, ok := From(err); ok {
		return de.Code
	}
	return CodeInternal
}
