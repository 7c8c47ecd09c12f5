package store

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/collabflow/internal/workflow"
)

// SnapshotFunc returns the current snapshot of a workflow.
// *workflow.Registry's Get satisfies it.
type SnapshotFunc func(id string) (workflow.Workflow, bool)

// Recorder is a workflow.EventSink that writes every event and the
// workflow's snapshot at that moment to the store.
//
// Write failures are logged and dropped. The audit trail must never fail
// a workflow.
type Recorder struct {
	store    *Store
	snapshot SnapshotFunc
	logger   *slog.Logger
}

// NewRecorder creates a Recorder. A nil logger discards.
func NewRecorder(s *Store, snapshot SnapshotFunc, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{store: s, snapshot: snapshot, logger: logger}
}

// Emit implements workflow.EventSink.
func (r *Recorder) Emit(ctx context.Context, ev workflow.Event) {
	// Writes outlive a cancelled run context.
	ctx = context.WithoutCancel(ctx)

	if wf, ok := r.snapshot(ev.WorkflowID); ok {
		if err := r.store.SaveWorkflow(ctx, wf); err != nil {
			r.logger.Warn("audit snapshot failed", "workflow_id", ev.WorkflowID, "error", err)
			return
		}
	}
	if err := r.store.AppendEvent(ctx, ev); err != nil {
		r.logger.Warn("audit event failed", "workflow_id", ev.WorkflowID, "type", string(ev.Type), "error", err)
	}
}
