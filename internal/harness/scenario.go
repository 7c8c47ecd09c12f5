package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/collabflow/internal/workflow"
)

// Scenario is a scripted workflow run.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	Workflow WorkflowSpec `yaml:"workflow"`

	// Steps run in order; each scripts its action and rollback outcome.
	Steps []StepSpec `yaml:"steps"`

	// CancelDuring names a step whose action calls Cancel before it settles.
	CancelDuring string `yaml:"cancel_during,omitempty"`

	Expect Expect `yaml:"expect"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// WorkflowSpec becomes the workflow.Definition header.
type WorkflowSpec struct {
	Kind    string `yaml:"kind"`
	Subject string `yaml:"subject"`
	Name    string `yaml:"name"`
}

// StepSpec scripts one step.
type StepSpec struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`

	// Outcome is ok (default), fail or panic.
	Outcome string `yaml:"outcome,omitempty"`

	// Error is the failure or panic message. May be empty for fail, which
	// exercises the "Unknown error" fallback.
	Error string `yaml:"error,omitempty"`

	// Rollback is none (default), ok or fail.
	Rollback      string `yaml:"rollback,omitempty"`
	RollbackError string `yaml:"rollback_error,omitempty"`
}

// Expect is the expected final outcome.
type Expect struct {
	Status string `yaml:"status"`
	Error  string `yaml:"error,omitempty"`

	// Toasts, if present, must equal the rendered notifications exactly.
	Toasts []string `yaml:"toasts,omitempty"`
}

// Assertion validates the trace or the audited final state.
type Assertion struct {
	// Type is trace_contains, trace_order, trace_count or final_state.
	Type string `yaml:"type"`

	// Event is an event reference (trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Events lists event references in expected order (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the exact number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Step selects a step for final_state; empty selects the workflow.
	Step string `yaml:"step,omitempty"`

	// Expect holds expected field values (final_state), subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Step outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeFail  = "fail"
	OutcomePanic = "panic"
)

// Rollback outcomes.
const (
	RollbackNone = "none"
	RollbackOK   = "ok"
	RollbackFail = "fail"
)

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Workflow.Name == "" {
		return fmt.Errorf("workflow.name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	ids := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		if step.ID == "" {
			return fmt.Errorf("steps[%d]: id is required", i)
		}
		if ids[step.ID] {
			return fmt.Errorf("steps[%d]: duplicate id %q", i, step.ID)
		}
		ids[step.ID] = true

		switch step.Outcome {
		case "", OutcomeOK, OutcomeFail, OutcomePanic:
		default:
			return fmt.Errorf("steps[%d]: unknown outcome %q", i, step.Outcome)
		}
		switch step.Rollback {
		case "", RollbackNone, RollbackOK, RollbackFail:
		default:
			return fmt.Errorf("steps[%d]: unknown rollback %q", i, step.Rollback)
		}
	}

	if s.CancelDuring != "" && !ids[s.CancelDuring] {
		return fmt.Errorf("cancel_during: unknown step %q", s.CancelDuring)
	}

	switch workflow.Status(s.Expect.Status) {
	case workflow.StatusCompleted, workflow.StatusError:
	default:
		return fmt.Errorf("expect.status must be completed or error, got %q", s.Expect.Status)
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, ids); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion, steps map[string]bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) < 2 {
			return fmt.Errorf("assertions[%d]: at least two events are required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
		if a.Step != "" && !steps[a.Step] {
			return fmt.Errorf("assertions[%d]: unknown step %q", index, a.Step)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	for _, ref := range append([]string{a.Event}, a.Events...) {
		if _, step, ok := strings.Cut(ref, ":"); ok && !steps[step] {
			return fmt.Errorf("assertions[%d]: event %q names unknown step", index, ref)
		}
	}
	return nil
}
