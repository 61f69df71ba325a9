// Package apperr defines the error kinds surfaced at the process boundary
// and the symbolic codes used in the JSON error envelope.
package apperr

import (
	"errors"
	"fmt"
)

// Code is the symbolic error code carried in the response envelope.
type Code string

const (
	CodeDB                   Code = "db_error"
	CodeIO                   Code = "io_error"
	CodeConfig               Code = "config_error"
	CodeDaemonNotRunning     Code = "daemon_not_running"
	CodeDaemonAlreadyRunning Code = "daemon_already_running"
	CodeNoData               Code = "no_data"
	CodeInvalidTimeRange     Code = "invalid_time_range"
	CodeCategoryNotFound     Code = "category_not_found"
	CodeRuleNotFound         Code = "rule_not_found"
	CodePlatformNotSupported Code = "platform_not_supported"
	CodeSync                 Code = "sync_error"
	CodeUnauthorized         Code = "unauthorized"
	CodeGeneric              Code = "error"
)

// Error pairs a message with a symbolic code and optionally wraps a cause.
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

// New creates a coded error.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message, keeping it unwrappable.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the symbolic code from err, falling back to the generic
// code for errors that never got one.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeGeneric
}

var (
	// ErrNoData is returned by queries over an empty time range.
	ErrNoData = New(CodeNoData, "no data for the requested time range; is the daemon running?")

	// ErrDaemonNotRunning indicates no live daemon process was found.
	ErrDaemonNotRunning = New(CodeDaemonNotRunning, "daemon not running")
)
