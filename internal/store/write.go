package store

import (
	"context"
	"fmt"

	"github.com/roach88/collabflow/internal/workflow"
)

// SaveWorkflow inserts or replaces the snapshot of a workflow.
// created_at is kept from the first write.
func (s *Store) SaveWorkflow(ctx context.Context, wf workflow.Workflow) error {
	stepsJSON, err := marshalSteps(wf.Steps)
	if err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows
		(id, kind, subject, name, status, error, current_step_index, steps, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			current_step_index = excluded.current_step_index,
			steps = excluded.steps,
			updated_at = excluded.updated_at
	`,
		wf.ID,
		wf.Kind,
		wf.Subject,
		wf.Name,
		string(wf.Status),
		wf.Error,
		nullIndex(wf.CurrentStepIndex),
		stepsJSON,
		formatTime(wf.CreatedAt),
		formatTime(wf.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

// AppendEvent inserts an event into the log.
// Uses ON CONFLICT DO NOTHING on (workflow_id, seq) so replayed writes are
// silently ignored.
//
// Note: the workflow referenced by ev.WorkflowID must exist (foreign key constraint).
func (s *Store) AppendEvent(ctx context.Context, ev workflow.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workflow_events
		(workflow_id, seq, type, step_id, step_index, completed, total, error, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(workflow_id, seq) DO NOTHING
	`,
		ev.WorkflowID,
		ev.Seq,
		string(ev.Type),
		ev.StepID,
		ev.StepIndex,
		ev.Completed,
		ev.Total,
		ev.Error,
		formatTime(ev.At),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}
