package notify

import (
	"context"

	"github.com/roach88/collabflow/internal/workflow"
)

type multiSink []workflow.EventSink

// Multi returns a sink delivering every event to each non-nil sink in order.
func Multi(sinks ...workflow.EventSink) workflow.EventSink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Emit(ctx context.Context, ev workflow.Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}
