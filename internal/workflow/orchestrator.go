package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Orchestrator creates workflows, runs their steps and records state in a Registry.
//
// Thread-safety model:
//   - Create, Start, Get, List, Cancel: safe from any goroutine
//   - the steps of one workflow always run on one goroutine, in order
type Orchestrator struct {
	registry        *Registry
	sink            EventSink
	ids             IDGenerator
	clock           *Clock
	now             func() time.Time
	logger          *slog.Logger
	propagateCancel bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSink sets the event sink. Default: events are dropped.
func WithSink(sink EventSink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithIDGenerator overrides the id generator (default: UUIDv7Generator).
func WithIDGenerator(ids IDGenerator) Option {
	return func(o *Orchestrator) {
		if ids != nil {
			o.ids = ids
		}
	}
}

// WithNow overrides the wall clock used for CreatedAt/UpdatedAt and event times.
func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCancelPropagation makes Cancel also cancel the context passed to the
// in-flight step action. By default cancellation only changes status.
func WithCancelPropagation(enabled bool) Option {
	return func(o *Orchestrator) {
		o.propagateCancel = enabled
	}
}

// New creates an Orchestrator that records workflows in registry.
// A nil registry gets a fresh one.
func New(registry *Registry, opts ...Option) *Orchestrator {
	if registry == nil {
		registry = NewRegistry()
	}

	o := &Orchestrator{
		registry: registry,
		sink:     nopSink{},
		ids:      UUIDv7Generator{},
		clock:    NewClock(),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Registry returns the registry this orchestrator writes to.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Create registers a workflow and runs it to completion on the calling goroutine.
//
// The workflow is visible through Get in the idle state before its first
// step runs. On step failure the returned error is a *StepError wrapping the
// step's original error; the id is still returned and the workflow stays
// registered with status error. Invalid definitions return
// ErrInvalidDefinition and register nothing.
func (o *Orchestrator) Create(ctx context.Context, def Definition) (string, error) {
	id, runCtx, err := o.register(ctx, def)
	if err != nil {
		return "", err
	}
	return id, o.execute(runCtx, id, def)
}

// Start registers a workflow and runs it on a new goroutine.
//
// The id is registered before Start returns, so Get(id) never misses it.
// The channel receives the execution result exactly once and is then closed.
func (o *Orchestrator) Start(ctx context.Context, def Definition) (string, <-chan error, error) {
	id, runCtx, err := o.register(ctx, def)
	if err != nil {
		return "", nil, err
	}

	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- o.execute(runCtx, id, def)
	}()
	return id, done, nil
}

// Get returns a snapshot of the workflow, or false for unknown ids.
func (o *Orchestrator) Get(id string) (Workflow, bool) {
	return o.registry.Get(id)
}

// List returns snapshots of all registered workflows.
func (o *Orchestrator) List() []Workflow {
	return o.registry.List()
}

// Cancel marks a running workflow as failed with CancelledMessage.
//
// Unknown ids and workflows that are not running are ignored. The in-flight
// step action is not interrupted unless WithCancelPropagation is set; the
// executor notices the cancellation once that step settles, starts no
// further steps and rolls back the completed ones.
//
// Advisory mode therefore still halts the remaining steps; it only leaves
// the running action alone.
func (o *Orchestrator) Cancel(id string) {
	now := o.now()
	wf, cancel, ok := o.registry.cancelRunning(id, func(wf *Workflow) {
		wf.Status = StatusError
		wf.Error = CancelledMessage
		wf.UpdatedAt = now
	})
	if !ok {
		return
	}

	o.logger.Info("workflow cancelled", "workflow_id", id, "name", wf.Name)
	o.emit(context.Background(), Event{
		Type:         EventWorkflowCancelled,
		WorkflowID:   id,
		WorkflowName: wf.Name,
		StepIndex:    -1,
		Total:        len(wf.Steps),
		Error:        CancelledMessage,
	})

	if o.propagateCancel && cancel != nil {
		cancel()
	}
}

// register validates def and inserts the idle workflow.
func (o *Orchestrator) register(ctx context.Context, def Definition) (string, context.Context, error) {
	if err := def.Validate(); err != nil {
		return "", nil, err
	}

	kind := def.Kind
	if kind == "" {
		kind = "workflow"
	}
	id := o.ids.NewID(kind, def.Subject)
	def.Kind = kind

	runCtx, cancel := context.WithCancel(ctx)
	if err := o.registry.add(newWorkflow(id, def, o.now()), cancel); err != nil {
		cancel()
		return "", nil, err
	}

	o.logger.Debug("workflow registered", "workflow_id", id, "name", def.Name, "steps", len(def.Steps))
	o.emit(ctx, Event{
		Type:         EventWorkflowCreated,
		WorkflowID:   id,
		WorkflowName: def.Name,
		StepIndex:    -1,
		Total:        len(def.Steps),
	})

	return id, runCtx, nil
}

// execute runs the steps of a registered workflow in order.
func (o *Orchestrator) execute(ctx context.Context, id string, def Definition) error {
	defer o.registry.release(id)

	total := len(def.Steps)
	o.transition(id, func(wf *Workflow) {
		if wf.Status == StatusIdle {
			wf.Status = StatusRunning
		}
	})
	o.logger.Info("workflow started", "workflow_id", id, "name", def.Name, "steps", total)
	o.emit(ctx, Event{
		Type:         EventWorkflowStarted,
		WorkflowID:   id,
		WorkflowName: def.Name,
		StepIndex:    -1,
		Total:        total,
	})

	completed := make([]int, 0, total)
	for i, step := range def.Steps {
		if o.isCancelled(id) {
			return o.abortCancelled(ctx, id, def, completed)
		}

		idx := i
		o.transition(id, func(wf *Workflow) {
			wf.CurrentStepIndex = &idx
			wf.Steps[idx].Status = StepRunning
		})
		o.emit(ctx, o.stepEvent(EventStepStarted, id, def, idx))

		if err := safeCall(ctx, step.Action); err != nil {
			return o.fail(ctx, id, def, idx, completed, err)
		}

		completed = append(completed, idx)
		o.transition(id, func(wf *Workflow) {
			wf.Steps[idx].Status = StepCompleted
		})
		ev := o.stepEvent(EventStepCompleted, id, def, idx)
		ev.Completed = len(completed)
		o.logger.Debug("step completed", "workflow_id", id, "step", step.ID, "progress", fmt.Sprintf("%d/%d", len(completed), total))
		o.emit(ctx, ev)
	}

	finished := false
	o.transition(id, func(wf *Workflow) {
		if wf.Status == StatusRunning {
			wf.Status = StatusCompleted
			wf.CurrentStepIndex = nil
			finished = true
		}
	})
	if !finished {
		return o.abortCancelled(ctx, id, def, completed)
	}
	o.logger.Info("workflow completed", "workflow_id", id, "name", def.Name)
	o.emit(ctx, Event{
		Type:         EventWorkflowCompleted,
		WorkflowID:   id,
		WorkflowName: def.Name,
		StepIndex:    -1,
		Completed:    len(completed),
		Total:        total,
	})
	return nil
}

// fail records a failed step, rolls back and returns the step error.
func (o *Orchestrator) fail(ctx context.Context, id string, def Definition, idx int, completed []int, stepErr error) error {
	msg := errorMessage(stepErr)
	failedNow := false
	o.transition(id, func(wf *Workflow) {
		wf.Steps[idx].Status = StepFailed
		wf.Steps[idx].Error = msg
		if wf.Status == StatusRunning {
			wf.Status = StatusError
			wf.Error = msg
			failedNow = true
		}
	})

	o.logger.Error("step failed",
		"workflow_id", id,
		"step", def.Steps[idx].ID,
		"index", idx,
		"error", msg,
	)
	ev := o.stepEvent(EventStepFailed, id, def, idx)
	ev.Error = msg
	o.emit(ctx, ev)

	o.rollback(ctx, id, def, completed)

	// A cancelled workflow already carries its terminal status.
	if !failedNow {
		return &StepError{WorkflowID: id, StepID: def.Steps[idx].ID, StepIndex: idx, Err: stepErr}
	}

	o.emit(ctx, Event{
		Type:         EventWorkflowFailed,
		WorkflowID:   id,
		WorkflowName: def.Name,
		StepID:       def.Steps[idx].ID,
		StepIndex:    idx,
		Completed:    len(completed),
		Total:        len(def.Steps),
		Error:        msg,
	})

	return &StepError{
		WorkflowID: id,
		StepID:     def.Steps[idx].ID,
		StepIndex:  idx,
		Err:        stepErr,
	}
}

// abortCancelled stops a cancelled workflow before its next step.
func (o *Orchestrator) abortCancelled(ctx context.Context, id string, def Definition, completed []int) error {
	o.logger.Info("workflow halted after cancellation",
		"workflow_id", id,
		"completed_steps", len(completed),
	)
	o.rollback(ctx, id, def, completed)
	return fmt.Errorf("workflow %s: %w", id, ErrCancelled)
}

func (o *Orchestrator) isCancelled(id string) bool {
	wf, ok := o.registry.Get(id)
	return ok && wf.Status == StatusError && wf.Error == CancelledMessage
}

// transition mutates the live record and bumps UpdatedAt.
func (o *Orchestrator) transition(id string, fn func(*Workflow)) Workflow {
	now := o.now()
	wf, _ := o.registry.update(id, func(wf *Workflow) {
		fn(wf)
		wf.UpdatedAt = now
	})
	return wf
}

func (o *Orchestrator) stepEvent(t EventType, id string, def Definition, idx int) Event {
	return Event{
		Type:         t,
		WorkflowID:   id,
		WorkflowName: def.Name,
		StepID:       def.Steps[idx].ID,
		StepIndex:    idx,
		Total:        len(def.Steps),
	}
}

// emit stamps and delivers an event.
func (o *Orchestrator) emit(ctx context.Context, ev Event) {
	ev.Seq = o.clock.Next()
	ev.At = o.now()
	o.sink.Emit(ctx, ev)
}

// safeCall runs fn, converting a panic into an error.
func safeCall(ctx context.Context, fn Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
