package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/collabflow/internal/workflow"
)

// ListFilter narrows ListWorkflows. Zero values match everything.
type ListFilter struct {
	Kind   string
	Status workflow.Status
	Limit  int
}

// ReadWorkflow retrieves the latest snapshot of a workflow.
// Unknown ids return an error wrapping workflow.ErrUnknownWorkflow.
func (s *Store) ReadWorkflow(ctx context.Context, id string) (workflow.Workflow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, subject, name, status, error, current_step_index, steps, created_at, updated_at
		FROM workflows
		WHERE id = ?
	`, id)
	wf, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return workflow.Workflow{}, fmt.Errorf("%w: %s", workflow.ErrUnknownWorkflow, id)
	}
	return wf, err
}

// ListWorkflows returns snapshots, newest first (ties by id).
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListWorkflows(ctx context.Context, f ListFilter) ([]workflow.Workflow, error) {
	var where []string
	var args []any
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	query := `
		SELECT id, kind, subject, name, status, error, current_step_index, steps, created_at, updated_at
		FROM workflows`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY created_at DESC, id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}
	defer rows.Close()

	out := []workflow.Workflow{}
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflows: %w", err)
	}
	return out, nil
}

// ReadEvents returns the event log of one workflow ordered by seq ASC, id ASC,
// with WorkflowName taken from the workflow's snapshot.
// Returns an empty slice (not nil) if no events exist.
func (s *Store) ReadEvents(ctx context.Context, workflowID string) ([]workflow.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.workflow_id, COALESCE(w.name, ''), e.seq, e.type, e.step_id, e.step_index, e.completed, e.total, e.error, e.at
		FROM workflow_events e
		LEFT JOIN workflows w ON w.id = e.workflow_id
		WHERE e.workflow_id = ?
		ORDER BY e.seq ASC, e.id ASC
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []workflow.Event{}
	for rows.Next() {
		var ev workflow.Event
		var typ, at string
		if err := rows.Scan(&ev.WorkflowID, &ev.WorkflowName, &ev.Seq, &typ, &ev.StepID, &ev.StepIndex, &ev.Completed, &ev.Total, &ev.Error, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = workflow.EventType(typ)
		if ev.At, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row scanner) (workflow.Workflow, error) {
	var wf workflow.Workflow
	var status, stepsJSON, createdAt, updatedAt string
	var current sql.NullInt64

	err := row.Scan(&wf.ID, &wf.Kind, &wf.Subject, &wf.Name, &status, &wf.Error, &current, &stepsJSON, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return workflow.Workflow{}, err
		}
		return workflow.Workflow{}, fmt.Errorf("scan workflow: %w", err)
	}

	wf.Status = workflow.Status(status)
	wf.CurrentStepIndex = indexPtr(current)
	if wf.Steps, err = unmarshalSteps(stepsJSON); err != nil {
		return workflow.Workflow{}, err
	}
	if wf.CreatedAt, err = parseTime(createdAt); err != nil {
		return workflow.Workflow{}, err
	}
	if wf.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return workflow.Workflow{}, err
	}
	return wf, nil
}
