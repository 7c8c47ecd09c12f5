package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDefinition is returned before registration when a
	// Definition is malformed (no steps, missing ids, nil actions).
	ErrInvalidDefinition = errors.New("invalid workflow definition")

	// ErrDuplicateWorkflow is returned when a generated id is already registered.
	ErrDuplicateWorkflow = errors.New("workflow already registered")

	// ErrUnknownWorkflow is returned by lookups that require an existing id,
	// such as reading a snapshot back from the audit store.
	ErrUnknownWorkflow = errors.New("unknown workflow")

	// ErrCancelled is returned by the executor when it observes that the
	// workflow was cancelled between steps.
	ErrCancelled = errors.New("workflow cancelled")
)

// StepError reports the step that failed a workflow.
//
// Err is the step action's original error; errors.Is and errors.As see
// through StepError to it.
type StepError struct {
	WorkflowID string
	StepID     string
	StepIndex  int
	Err        error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("workflow %s step %q: %s", e.WorkflowID, e.StepID, errorMessage(e.Err))
}

// Unwrap returns the step's original error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// IsStepError returns true if err is or wraps a StepError.
func IsStepError(err error) bool {
	var se *StepError
	return errors.As(err, &se)
}

// IsCancelled returns true if err reports a cancelled workflow.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// errorMessage is the human-readable message recorded on a failed workflow.
func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return unknownErrorMessage
	}
	return err.Error()
}
