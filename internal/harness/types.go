package harness

import "github.com/roach88/collabflow/internal/workflow"

// TraceEvent is one orchestrator event with the fields that are stable
// across runs.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Type      string `json:"type"`
	Step      string `json:"step,omitempty"`
	Completed int    `json:"completed,omitempty"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
}

// Ref returns the event's reference, "<type>" or "<type>:<step>".
func (e TraceEvent) Ref() string {
	if e.Step == "" {
		return e.Type
	}
	return e.Type + ":" + e.Step
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if the expected outcome and every assertion matched.
	Pass bool `json:"pass"`

	WorkflowID string       `json:"workflow_id"`
	Trace      []TraceEvent `json:"trace"`
	Toasts     []string     `json:"toasts"`

	// Final is the registry snapshot after Create returned.
	Final workflow.Workflow `json:"final"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Toasts: []string{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(ev workflow.Event) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:       ev.Seq,
		Type:      string(ev.Type),
		Step:      ev.StepID,
		Completed: ev.Completed,
		Total:     ev.Total,
		Error:     ev.Error,
	})
}
