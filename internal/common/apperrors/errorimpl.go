package apperrors

import (
	"errors"
	"strings"
)

// appError is the concrete implementation behind the Error interface.
type appError struct {
	msg         string  // primary message
	base        error   // parent error for errors.Is / errors.As
	wrapped     []error // additionally attached errors
	statusCode  int     // HTTP status code
	expandError bool    // whether ErrorAll appends wrapped errors
}

// New creates a root error with the given message. Derived errors are created
// from it with Error.New.
func New(msg string) Error {
	return &appError{msg: msg}
}

func (e *appError) Error() string {
	return e.msg
}

// ErrorAll returns the message followed by every wrapped error when expansion
// is enabled; otherwise it is identical to Error.
func (e *appError) ErrorAll() string {
	if !e.expandError {
		return e.msg
	}
	var b strings.Builder
	b.WriteString(e.msg)
	for _, err := range e.wrapped {
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) UnwrapAll() []error {
	return e.wrapped
}

// New derives a fresh error with the receiver as its base. The derived error
// matches the receiver under errors.Is and inherits its status code.
func (e *appError) New(msg string) Error {
	return &appError{
		msg:         msg,
		base:        e,
		statusCode:  e.statusCode,
		expandError: e.expandError,
	}
}

// Msg derives an error with a new message, wrapping the receiver.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:         msg,
		base:        e,
		wrapped:     append([]error{e}, e.wrapped...),
		statusCode:  e.statusCode,
		expandError: e.expandError,
	}
}

// MsgErr derives an error with a new message and additional wrapped errors.
func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{
		msg:         msg,
		base:        e,
		wrapped:     append([]error{e}, errs...),
		statusCode:  e.statusCode,
		expandError: e.expandError,
	}
}

// Err attaches additional errors to the receiver, keeping its message.
func (e *appError) Err(errs ...error) Error {
	return &appError{
		msg:         e.msg,
		base:        e,
		wrapped:     append([]error{e}, errs...),
		statusCode:  e.statusCode,
		expandError: e.expandError,
	}
}

// SetExpandError returns a copy with the expansion flag updated.
func (e *appError) SetExpandError(flag bool) Error {
	cp := *e
	cp.expandError = flag
	return &cp
}

// SetStatusCode returns a copy with the status code updated.
func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statusCode = code
	return &cp
}

func (e *appError) StatusCode() int {
	return e.statusCode
}

// Is reports whether target matches the base error or any wrapped error, so
// errors.Is traverses the whole attachment set rather than only the base chain.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.wrapped {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
