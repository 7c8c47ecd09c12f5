package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/collabflow/internal/store"
	"github.com/roach88/collabflow/internal/workflow"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, event.Ref())
		}
	}

	return buf.String()
}

// matchRef reports whether ev matches an event reference. A reference
// without a step matches every event of that type.
func matchRef(ev TraceEvent, ref string) bool {
	if strings.Contains(ref, ":") {
		return ev.Ref() == ref
	}
	return ev.Type == ref
}

func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if matchRef(event, assertion.Event) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("event %s", assertion.Event),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first occurrence of each event comes
// after the first occurrence of the previous one. Other events may appear
// in between.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		for _, ref := range assertion.Events {
			if positions[ref] == 0 && matchRef(event, ref) {
				positions[ref] = i + 1
			}
		}
	}

	for _, ref := range assertion.Events {
		if positions[ref] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all events present: %v", assertion.Events),
				Actual:   fmt.Sprintf("missing event: %s", ref),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Events); i++ {
		prev := assertion.Events[i-1]
		curr := assertion.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if matchRef(event, assertion.Event) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the last audited snapshot of the workflow, or of
// one of its steps, with subset semantics.
func assertFinalState(ctx context.Context, st *store.Store, workflowID string, assertion Assertion) error {
	wf, err := st.ReadWorkflow(ctx, workflowID)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("audited workflow %s", workflowID),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}

	actual, err := stateFields(wf, assertion.Step)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in %v", key, sortedKeys(actual)),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s%q = %v (type %T)", stepPrefix(assertion.Step), key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("%s%q = %v (type %T)", stepPrefix(assertion.Step), key, actualValue, actualValue),
			}
		}
	}
	return nil
}

func stepPrefix(step string) string {
	if step == "" {
		return "workflow "
	}
	return "step " + step + " "
}

// stateFields flattens the workflow, or the named step, into comparable fields.
func stateFields(wf workflow.Workflow, stepID string) (map[string]any, error) {
	if stepID == "" {
		var current any
		if wf.CurrentStepIndex != nil {
			current = *wf.CurrentStepIndex
		}
		return map[string]any{
			"status":             string(wf.Status),
			"error":              wf.Error,
			"current_step_index": current,
			"completed_steps":    wf.CompletedSteps(),
		}, nil
	}

	for _, s := range wf.Steps {
		if s.ID == stepID {
			return map[string]any{
				"status":      string(s.Status),
				"error":       s.Error,
				"rolled_back": s.RolledBack,
			}, nil
		}
	}
	return nil, &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("step %q in audited workflow", stepID),
		Actual:   "step not found",
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateValuesEqual compares a YAML-decoded expectation with a field value.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case int:
		if a, ok := actual.(int); ok {
			return exp == a
		}
		return false
	case string:
		if a, ok := actual.(string); ok {
			return exp == a
		}
		return false
	case bool:
		if a, ok := actual.(bool); ok {
			return exp == a
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

// AssertionContext provides the audit store for final_state assertions.
type AssertionContext struct {
	Store      *store.Store
	Ctx        context.Context
	WorkflowID string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, actx.WorkflowID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
