package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/collabflow/internal/workflow"
)

// createTestStore opens a fresh store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestWorkflow creates a two-step idle workflow snapshot.
func createTestWorkflow(id, kind string, created time.Time) workflow.Workflow {
	return workflow.Workflow{
		ID:     id,
		Kind:   kind,
		Name:   "Test " + kind,
		Status: workflow.StatusIdle,
		Steps: []workflow.Step{
			{ID: "a", Name: "A", Status: workflow.StepPending},
			{ID: "b", Name: "B", Status: workflow.StepPending},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}
