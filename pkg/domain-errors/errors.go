// Package domainerrors defines coded errors returned by services to their callers.
//
// Stores report infrastructure facts through pkg/platform/sentinel; services translate
// those facts into one of the codes below so the transport layer can pick a response
// without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeNotFound            Code = "not_found"
	CodeValidation          Code = "validation"
	CodeForbidden           Code = "forbidden"
	CodeConflict            Code = "conflict"
	CodeUnauthorized        Code = "unauthorized"
	CodeInternal            Code = "internal"
	CodeTimeout             Code = "timeout"
	CodeConversion          Code = "conversion"
	CodeInsufficientFunds   Code = "insufficient_funds"
	CodeActivationPolicy    Code = "activation_policy"
	CodeConcurrencyConflict Code = "concurrency_conflict"
	CodeCacheDesync         Code = "cache_desync"
)

// Error carries a code, a caller-safe message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a coded error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
// A nil err yields a coded error without a cause.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost coded error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in the chain has the given code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// Is reports whether any error in the chain is a coded error with the given code.
func Is(err error, code Code) bool {
	for err != nil {
		if de, ok := err.(*Error); ok && de.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
