package workflow

import (
	"context"
	"time"
)

// EventType identifies a workflow lifecycle event.
type EventType string

const (
	EventWorkflowCreated   EventType = "workflow.created"
	EventWorkflowStarted   EventType = "workflow.started"
	EventWorkflowCompleted EventType = "workflow.completed"
	EventWorkflowFailed    EventType = "workflow.failed"
	EventWorkflowCancelled EventType = "workflow.cancelled"

	EventStepStarted        EventType = "step.started"
	EventStepCompleted      EventType = "step.completed"
	EventStepFailed         EventType = "step.failed"
	EventStepRolledBack     EventType = "step.rolled_back"
	EventStepRollbackFailed EventType = "step.rollback_failed"
)

// Event is one discrete state change emitted by the orchestrator.
//
// StepIndex is -1 for workflow-scoped events. Completed and Total carry
// progress: on step.completed, Completed is the number of steps completed
// so far in this run (1-based), Total the number of steps.
type Event struct {
	Seq          int64     `json:"seq"`
	Type         EventType `json:"type"`
	WorkflowID   string    `json:"workflow_id"`
	WorkflowName string    `json:"workflow_name"`
	StepID       string    `json:"step_id,omitempty"`
	StepIndex    int       `json:"step_index"`
	Completed    int       `json:"completed,omitempty"`
	Total        int       `json:"total"`
	Error        string    `json:"error,omitempty"`
	At           time.Time `json:"at"`
}

// EventSink receives events. Emit is called synchronously from the
// executing goroutine, so implementations must not block for long.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, ev Event)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, ev Event) {
	f(ctx, ev)
}

type nopSink struct{}

func (nopSink) Emit(context.Context, Event) {}
