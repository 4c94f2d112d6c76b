package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/hotswap/internal/plan"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // cycle ran, nothing failed
	ExitFailure      = 1 // cycle ran with failed tasks, or plan validation failed
	ExitCommandError = 2 // bad invocation: config, journal or plan unreadable
)

// ExitError carries an exit code alongside the error message so main can
// exit with the right status.
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

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Printer renders command results as text or JSON.
//
// Every command's JSON output shares one envelope: {"status": "ok",
// "result": ...} on success, {"status": "error", "error": {...}} on
// failure. Text mode prints the result's String form.
type Printer struct {
	Format string
	Out    io.Writer
}

type envelope struct {
	Status string   `json:"status"`
	Result any      `json:"result,omitempty"`
	Error  *problem `json:"error,omitempty"`
}

// problem is the machine-readable error half of the envelope. Code is a
// stable identifier like PLAN_SCHEMA_VIOLATION, not prose.
type problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Report renders a successful result.
func (p *Printer) Report(result any) error {
	if p.Format == "json" {
		return json.NewEncoder(p.Out).Encode(envelope{Status: "ok", Result: result})
	}
	_, err := fmt.Fprintln(p.Out, result)
	return err
}

// Fail renders an error with its code. The command still returns an
// ExitError; Fail only controls what the user sees on stdout.
func (p *Printer) Fail(code, message, detail string) error {
	if p.Format == "json" {
		return json.NewEncoder(p.Out).Encode(envelope{
			Status: "error",
			Error:  &problem{Code: code, Message: message, Detail: detail},
		})
	}
	_, err := fmt.Fprintf(p.Out, "error [%s]: %s\n", code, message)
	return err
}

// planErrorCode surfaces the plan loader's own code when there is one.
func planErrorCode(err error) string {
	var le *plan.LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return "PLAN_INVALID"
}
