package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	dErrors "giftexchange/pkg/domain-errors"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the draw itself failed (roster too small, attempts exhausted, conflict)
	ExitCommandError = 2 // bad input or an unusable backend
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// domainExit picks the exit code for a service error.
func domainExit(message string, err error) *ExitError {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInsufficientRoster, dErrors.CodeAttemptsExhausted, dErrors.CodeConflict:
		return WrapExitError(ExitFailure, message, err)
	default:
		return WrapExitError(ExitCommandError, message, err)
	}
}

// formatter renders command results as indented JSON or aligned text.
type formatter struct {
	format string
	w      io.Writer
}

func (f formatter) emit(data any, text func(tw *tabwriter.Writer)) error {
	if f.format == "json" {
		enc := json.NewEncoder(f.w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	tw := tabwriter.NewWriter(f.w, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}
