package cliutil

import (
	"errors"
	"fmt"
)

// Process exit statuses shared by the commands of this module.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// ArgumentError reports a missing or malformed command-line argument.
// It is always detected before any side effect takes place.
type ArgumentError struct {
	Err error
}

// Argumentf returns an *ArgumentError with a formatted message.
func Argumentf(format string, args ...any) error {
	return &ArgumentError{Err: fmt.Errorf(format, args...)}
}

func (e *ArgumentError) Error() string {
	if e.Err == nil {
		return "invalid arguments"
	}
	return "invalid arguments: " + e.Err.Error()
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// IsArgumentError reports whether err (or anything it wraps) is an *ArgumentError.
func IsArgumentError(err error) bool {
	var argErr *ArgumentError
	return errors.As(err, &argErr)
}

// CommandError is returned when a shell command exits with a non-zero status
// or cannot be started at all (ExitCode 127).
type CommandError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed with exit status %d: %v", e.Command, e.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }
