// Package errs defines the exit-code taxonomy shared by every command and
// core subsystem. A Code is a value, never a panic: background work must
// convert panics into CodeGeneric at the task boundary before they reach a
// caller.
package errs

import "fmt"

// Code is one entry in the exit-code taxonomy (spec §7).
type Code int

const (
	CodeOK                  Code = 0
	CodeGeneric             Code = 1
	CodeInvalidInput        Code = 2
	CodeProviderUnavailable Code = 3
	CodeProviderCLIError    Code = 4
	CodeTimeout             Code = 5
	CodeMissingConfig       Code = 6
	CodeStoreError          Code = 7
	CodeMultiplexerError    Code = 8
)

// String returns the taxonomy name for the code, used in NDJSON records
// and CLI error output.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeGeneric:
		return "generic"
	case CodeInvalidInput:
		return "invalid_input"
	case CodeProviderUnavailable:
		return "provider_unavailable"
	case CodeProviderCLIError:
		return "provider_cli_error"
	case CodeTimeout:
		return "timeout"
	case CodeMissingConfig:
		return "missing_config"
	case CodeStoreError:
		return "store_error"
	case CodeMultiplexerError:
		return "multiplexer_error"
	default:
		return "unknown"
	}
}

// Error is a taxonomy-coded error. Stderr captured from a subprocess, once
// cleaned of ANSI, is attached in Detail so it reaches the user.
type Error struct {
	Code   Code
	Msg    string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Msg, e.Detail)
}

// New creates a taxonomy error with no captured detail.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// WithDetail attaches stderr/diagnostic text to an existing error.
func WithDetail(code Code, detail string, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Detail: detail}
}

// CodeOf extracts the taxonomy code from err, defaulting to CodeGeneric
// for errors that were never classified.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Code
	}
	return CodeGeneric
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
