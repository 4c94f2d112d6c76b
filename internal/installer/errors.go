package installer

import (
	"errors"
	"fmt"

	"github.com/roach88/hotswap/internal/bundle"
)

// TaskError represents a failure detected while executing a task.
//
// Task errors abort only the task that raised them; the executor journals
// the failure and the cycle's remaining tasks still run.
type TaskError struct {
	// Code identifies the error category.
	Code TaskErrorCode

	// Message is a human-readable description.
	Message string

	// Module identifies the affected bundle, if any.
	Module bundle.ID

	// Err is the underlying runtime error, if any.
	Err error
}

// TaskErrorCode categorizes task errors.
type TaskErrorCode string

const (
	// ErrCodeRuntimeUnavailable indicates the module runtime capability
	// was missing from the execution context.
	ErrCodeRuntimeUnavailable TaskErrorCode = "RUNTIME_UNAVAILABLE"

	// ErrCodeRuntimeOp indicates a runtime lifecycle operation failed.
	ErrCodeRuntimeOp TaskErrorCode = "RUNTIME_OPERATION_FAILED"
)

// Error implements the error interface.
func (e *TaskError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("%s: %s (module=%s)", e.Code, e.Message, e.Module)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *TaskError) Unwrap() error { return e.Err }

// IsRuntimeUnavailable returns true if the error reports a missing module
// runtime capability. Uses errors.As to handle wrapped errors.
func IsRuntimeUnavailable(err error) bool {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Code == ErrCodeRuntimeUnavailable
	}
	return false
}

func errRuntimeUnavailable(task string) *TaskError {
	return &TaskError{
		Code:    ErrCodeRuntimeUnavailable,
		Message: fmt.Sprintf("%s requires a module runtime", task),
	}
}

func errRuntimeOp(op string, id bundle.ID, err error) *TaskError {
	return &TaskError{
		Code:    ErrCodeRuntimeOp,
		Message: op + " failed",
		Module:  id,
		Err:     err,
	}
}
