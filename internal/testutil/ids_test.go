package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/collabflow/internal/workflow"
)

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs()

	assert.Equal(t, "export_c1_0001", g.NewID("export", "c1"))
	assert.Equal(t, "alerts_c1_0002", g.NewID("alerts", "C1"))
	assert.Equal(t, "workflow_0003", g.NewID("workflow", ""))

	g.Reset()
	assert.Equal(t, "export_c1_0001", g.NewID("export", "c1"))
}

func TestSequentialIDs_WithOrchestrator(t *testing.T) {
	clock := NewDeterministicClock()
	o := workflow.New(nil,
		workflow.WithIDGenerator(NewSequentialIDs()),
		workflow.WithNow(clock.Now),
	)

	id, err := o.Create(context.Background(), workflow.Definition{
		Kind:    "export",
		Subject: "c1",
		Name:    "Export",
		Steps:   []workflow.StepDef{{ID: "a", Action: func(context.Context) error { return nil }}},
	})
	require.NoError(t, err)
	assert.Equal(t, "export_c1_0001", id)

	wf, _ := o.Get(id)
	assert.Equal(t, Epoch, wf.CreatedAt)
	assert.True(t, wf.UpdatedAt.After(wf.CreatedAt))
}
