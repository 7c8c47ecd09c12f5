package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/collabflow/internal/notify"
	"github.com/roach88/collabflow/internal/store"
	"github.com/roach88/collabflow/internal/testutil"
	"github.com/roach88/collabflow/internal/workflow"
)

// Harness holds the per-scenario runtime.
type Harness struct {
	orch   *workflow.Orchestrator
	clock  *testutil.DeterministicClock
	ids    *testutil.SequentialIDs
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with its own registry,
// so scenarios never observe each other. An error is returned only when
// the scenario could not be executed at all; a scenario whose outcome
// differs from its expectations returns a failed Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	result := NewResult()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := workflow.NewRegistry()

	tracer := workflow.SinkFunc(func(_ context.Context, ev workflow.Event) {
		result.addEvent(ev)
	})
	notifier := notify.NewNotifier(notify.ToasterFunc(func(_ context.Context, t notify.Toast) {
		result.Toasts = append(result.Toasts, t.Message)
	}))
	recorder := store.NewRecorder(st, registry.Get, logger)

	h := &Harness{
		clock:  testutil.NewDeterministicClock(),
		ids:    testutil.NewSequentialIDs(),
		logger: logger,
	}
	h.orch = workflow.New(registry,
		workflow.WithSink(notify.Multi(tracer, notifier, recorder)),
		workflow.WithIDGenerator(h.ids),
		workflow.WithNow(h.clock.Now),
		workflow.WithLogger(logger),
	)

	ctx := context.Background()
	id, runErr := h.orch.Create(ctx, h.definition(scenario))
	if id == "" {
		return nil, fmt.Errorf("failed to create workflow: %w", runErr)
	}
	result.WorkflowID = id
	result.Final, _ = h.orch.Get(id)

	checkOutcome(scenario, result, runErr)

	actx := &AssertionContext{Store: st, Ctx: ctx, WorkflowID: id}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// definition turns the scripted steps into a workflow definition.
func (h *Harness) definition(s *Scenario) workflow.Definition {
	def := workflow.Definition{
		Kind:    s.Workflow.Kind,
		Subject: s.Workflow.Subject,
		Name:    s.Workflow.Name,
		Steps:   make([]workflow.StepDef, len(s.Steps)),
	}
	for i, step := range s.Steps {
		def.Steps[i] = workflow.StepDef{
			ID:       step.ID,
			Name:     step.Name,
			Action:   h.action(step, step.ID == s.CancelDuring),
			Rollback: rollbackAction(step),
		}
	}
	return def
}

func (h *Harness) action(step StepSpec, cancel bool) workflow.Action {
	return func(context.Context) error {
		if cancel {
			// The scenario owns the only workflow in this registry.
			for _, wf := range h.orch.List() {
				h.orch.Cancel(wf.ID)
			}
		}
		switch step.Outcome {
		case OutcomeFail:
			return errors.New(step.Error)
		case OutcomePanic:
			panic(step.Error)
		default:
			return nil
		}
	}
}

func rollbackAction(step StepSpec) workflow.Action {
	switch step.Rollback {
	case RollbackOK:
		return func(context.Context) error { return nil }
	case RollbackFail:
		return func(context.Context) error { return errors.New(step.RollbackError) }
	default:
		return nil
	}
}

// checkOutcome compares the final snapshot and the Create error with Expect.
func checkOutcome(s *Scenario, r *Result, runErr error) {
	want := s.Expect
	if got := string(r.Final.Status); got != want.Status {
		r.AddError(fmt.Sprintf("status: expected %q, got %q", want.Status, got))
	}
	if r.Final.Error != want.Error {
		r.AddError(fmt.Sprintf("error: expected %q, got %q", want.Error, r.Final.Error))
	}
	if want.Status == string(workflow.StatusCompleted) && runErr != nil {
		r.AddError(fmt.Sprintf("completed workflow returned error: %v", runErr))
	}
	if want.Status == string(workflow.StatusError) && runErr == nil {
		r.AddError("failed workflow returned no error")
	}

	if want.Toasts == nil {
		return
	}
	if len(want.Toasts) != len(r.Toasts) {
		r.AddError(fmt.Sprintf("toasts: expected %d %q, got %d %q", len(want.Toasts), want.Toasts, len(r.Toasts), r.Toasts))
		return
	}
	for i := range want.Toasts {
		if want.Toasts[i] != r.Toasts[i] {
			r.AddError(fmt.Sprintf("toasts[%d]: expected %q, got %q", i, want.Toasts[i], r.Toasts[i]))
		}
	}
}
