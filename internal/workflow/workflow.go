package workflow

import (
	"context"
	"fmt"
	"time"
)

// Status is the lifecycle status of a workflow.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusCompleted, StatusError:
		return true
	}
	return false
}

// StepStatus is the lifecycle status of a single step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "error"
)

// CancelledMessage is the error recorded on a workflow cancelled by Cancel.
const CancelledMessage = "Cancelled by user"

// unknownErrorMessage is recorded when a step fails with an empty message.
const unknownErrorMessage = "Unknown error"

// Action performs a step's side effect. A non-nil error fails the step.
type Action func(ctx context.Context) error

// StepDef defines one step of a workflow.
type StepDef struct {
	ID       string
	Name     string
	Action   Action
	Rollback Action // optional
}

// Definition is the input to Create and Start.
//
// Kind and Subject feed the generated workflow id (e.g. "export" and a
// contract id). Steps run in slice order; the order never changes.
type Definition struct {
	Kind    string
	Subject string
	Name    string
	Steps   []StepDef
}

// Validate checks the definition before anything is registered.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("%w: workflow %q has no steps", ErrInvalidDefinition, d.Name)
	}

	seen := make(map[string]bool, len(d.Steps))
	for i, step := range d.Steps {
		if step.ID == "" {
			return fmt.Errorf("%w: steps[%d]: id is required", ErrInvalidDefinition, i)
		}
		if seen[step.ID] {
			return fmt.Errorf("%w: steps[%d]: duplicate step id %q", ErrInvalidDefinition, i, step.ID)
		}
		seen[step.ID] = true
		if step.Action == nil {
			return fmt.Errorf("%w: steps[%d] %q: action is required", ErrInvalidDefinition, i, step.ID)
		}
	}
	return nil
}

// Step is the observable record of one step.
type Step struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     StepStatus `json:"status"`
	RolledBack bool       `json:"rolled_back,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Workflow is a point-in-time snapshot of a registered workflow.
// Snapshots are copies; mutating one does not affect the registry.
type Workflow struct {
	ID               string    `json:"id"`
	Kind             string    `json:"kind"`
	Subject          string    `json:"subject,omitempty"`
	Name             string    `json:"name"`
	Status           Status    `json:"status"`
	Steps            []Step    `json:"steps"`
	CurrentStepIndex *int      `json:"current_step_index,omitempty"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CompletedSteps counts steps in the completed status.
func (w Workflow) CompletedSteps() int {
	n := 0
	for _, s := range w.Steps {
		if s.Status == StepCompleted {
			n++
		}
	}
	return n
}

func (w Workflow) clone() Workflow {
	c := w
	c.Steps = make([]Step, len(w.Steps))
	copy(c.Steps, w.Steps)
	if w.CurrentStepIndex != nil {
		idx := *w.CurrentStepIndex
		c.CurrentStepIndex = &idx
	}
	return c
}

func newWorkflow(id string, def Definition, now time.Time) Workflow {
	steps := make([]Step, len(def.Steps))
	for i, s := range def.Steps {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		steps[i] = Step{ID: s.ID, Name: name, Status: StepPending}
	}
	return Workflow{
		ID:        id,
		Kind:      def.Kind,
		Subject:   def.Subject,
		Name:      def.Name,
		Status:    StatusIdle,
		Steps:     steps,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
