// Package domainerrors defines the coded error taxonomy shared by services and
// transports. Services return these; transports map codes to status codes.
//
// Stores do not return coded errors. They return sentinel facts from
// pkg/platform/sentinel, which services translate into codes here.
package domainerrors

import "errors"

// Code identifies a class of domain failure.
type Code string

const (
	// CodeValidation: a field is missing, too long, or outside its allowed set.
	CodeValidation Code = "validation_error"
	// CodeBadRequest: the request could not be parsed at all.
	CodeBadRequest Code = "bad_request"
	// CodeConflict: the natural key is already registered.
	CodeConflict Code = "conflict"
	// CodeNotFound: no record under the requested key.
	CodeNotFound Code = "not_found"
	// CodeEmptySearch: a directed search carried no usable criteria.
	CodeEmptySearch Code = "empty_search"
	// CodeUnavailable: the storage substrate failed (network, auth, quota).
	CodeUnavailable Code = "store_unavailable"
	// CodeInvariantViolation: a constructor refused to build an invalid value.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal: anything else.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. Message is safe to show to callers unless
// the code is internal or unavailable.
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

// New builds a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable through errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error is not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost domain message without the wrapped cause.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
