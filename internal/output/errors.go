package output

import (
	"errors"
	"fmt"
)

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code       string
	Message    string
	Hint       string
	HTTPStatus int
	// RawBody is the unparsed response body of a failed Power BI call.
	RawBody string
	// RetryAfter is the server's requested back-off in seconds (429 only).
	RetryAfter int
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

// ErrAuth reports a failed credential acquisition. It is always fatal for
// the running command.
func ErrAuth(msg string) *Error {
	return &Error{
		Code:    CodeAuth,
		Message: msg,
		Hint:    "Run: az login",
	}
}

func ErrAuthCause(msg string, cause error) *Error {
	e := ErrAuth(msg)
	e.Cause = cause
	return e
}

func ErrNetwork(cause error) *Error {
	return &Error{
		Code:    CodeNetwork,
		Message: "Network error",
		Hint:    cause.Error(),
		Cause:   cause,
	}
}

// ErrAPI reports a non-2xx response. The status is not classified further.
func ErrAPI(status int, body string) *Error {
	return &Error{
		Code:       CodeAPI,
		Message:    fmt.Sprintf("API Error %d: %s", status, body),
		HTTPStatus: status,
		RawBody:    body,
	}
}

func ErrConfig(msg string) *Error {
	return &Error{Code: CodeConfig, Message: msg}
}

func ErrConfigHint(msg, hint string) *Error {
	return &Error{Code: CodeConfig, Message: msg, Hint: hint}
}

// IsRemote reports whether err is a non-2xx response from the control plane,
// and returns its status.
func IsRemote(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Code == CodeAPI && e.HTTPStatus > 0 {
		return e.HTTPStatus, true
	}
	return 0, false
}

// AsError attempts to convert an error to an *Error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Code:    CodeAPI,
		Message: err.Error(),
		Cause:   err,
	}
}
