package notify

import (
	"context"
	"fmt"

	"github.com/roach88/collabflow/internal/workflow"
)

// Level classifies a toast.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
)

// Toast is one user-facing notification.
type Toast struct {
	Level      Level
	WorkflowID string
	Message    string
}

// Toaster displays toasts.
type Toaster interface {
	Toast(ctx context.Context, t Toast)
}

// ToasterFunc adapts a function to Toaster.
type ToasterFunc func(ctx context.Context, t Toast)

// Toast calls f.
func (f ToasterFunc) Toast(ctx context.Context, t Toast) {
	f(ctx, t)
}

// Notifier is a workflow.EventSink that renders step progress and workflow
// completion as toasts. All other events are ignored.
type Notifier struct {
	toaster Toaster
}

// NewNotifier creates a Notifier delivering to toaster.
func NewNotifier(toaster Toaster) *Notifier {
	return &Notifier{toaster: toaster}
}

// Emit implements workflow.EventSink.
func (n *Notifier) Emit(ctx context.Context, ev workflow.Event) {
	t, ok := Render(ev)
	if !ok {
		return
	}
	n.toaster.Toast(ctx, t)
}

// Render returns the toast for ev, or false if ev is not notified.
func Render(ev workflow.Event) (Toast, bool) {
	switch ev.Type {
	case workflow.EventStepCompleted:
		return Toast{
			Level:      LevelInfo,
			WorkflowID: ev.WorkflowID,
			Message:    fmt.Sprintf("%s: Step %d/%d completed", ev.WorkflowName, ev.Completed, ev.Total),
		}, true
	case workflow.EventWorkflowCompleted:
		return Toast{
			Level:      LevelSuccess,
			WorkflowID: ev.WorkflowID,
			Message:    fmt.Sprintf("%s completed successfully!", ev.WorkflowName),
		}, true
	default:
		return Toast{}, false
	}
}
