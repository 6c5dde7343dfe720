// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package errors

import (
	"errors"
	"fmt"
)

// Error is a status code plus a message and an optional cause.
type Error struct {
	Code    Status
	Message string
	Cause   *Error
}

// Error implements error.
func (s Status) Error() string { return s.String() }

// With returns an Error with this status code and the given message.
func (s Status) With(v ...interface{}) *Error {
	return &Error{Code: s, Message: fmt.Sprint(v...)}
}

// WithFormat returns an Error with this status code and a formatted
// message. If the format wraps an error with %w, that error becomes the
// cause.
func (s Status) WithFormat(format string, args ...interface{}) *Error {
	err := fmt.Errorf(format, args...)
	e := &Error{Code: s, Message: err.Error()}
	if u, ok := err.(interface{ Unwrap() error }); ok {
		e.setCause(convert(u.Unwrap()))
	}
	return e
}

// Wrap wraps an error with this status code. Wrapping nil returns nil. An
// error that already carries a code is returned unchanged when this status
// is UnknownError.
func (s Status) Wrap(err error) error {
	if err == nil {
		// The return type must be `error` - otherwise this return statement
		// can cause strange errors
		return nil
	}
	if !s.IsKnownError() {
		if _, ok := err.(*Error); ok {
			return err
		}
	}
	e := &Error{Code: s}
	e.setCause(convert(err))
	return e
}

func convert(err error) *Error {
	if err == nil {
		return nil
	}
	if x := (*Error)(nil); errors.As(err, &x) {
		return x
	}
	if x := Status(0); errors.As(err, &x) {
		return &Error{Code: x, Message: err.Error()}
	}
	e := &Error{Code: UnknownError, Message: err.Error()}
	if u, ok := err.(interface{ Unwrap() error }); ok {
		if err := u.Unwrap(); err != nil {
			e.setCause(convert(err))
		}
	}
	return e
}

func (e *Error) setCause(f *Error) {
	e.Cause = f
	if f == nil || e.Code.IsKnownError() {
		return
	}
	if e.Message != "" {
		// Copy the code
		e.Code = f.Code
		return
	}
	// Inherit everything
	*e = *f
}

func (e *Error) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return e.Code
}

func (e *Error) Is(target error) bool {
	switch f := target.(type) {
	case *Error:
		if e.Code == f.Code {
			return true
		}
	case Status:
		if e.Code == f {
			return true
		}
	}
	if e.Cause != nil {
		return e.Cause.Is(target)
	}
	return false
}

func (e *Error) Format(f fmt.State, verb rune) {
	f.Write([]byte(e.Error()))
}
