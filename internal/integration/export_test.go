package integration

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/collabflow/internal/terms"
	"github.com/roach88/collabflow/internal/workflow"
)

func validExport() terms.ExportRequest {
	return terms.ExportRequest{
		Format:      "csv",
		DateRange:   terms.DateRange{Start: "2026-01-01", End: "2026-01-31"},
		Metrics:     []string{"reach", "impressions"},
		ContractIDs: []string{"c1"},
	}
}

func exportRoutes(b *fakeBackend, statuses ...string) {
	b.json("POST /analytics/aggregate", http.StatusOK, map[string]int{"rows": 42})
	b.json("POST /exports", http.StatusAccepted, map[string]string{"job_id": "j1", "status": JobPending})
	b.json("DELETE /exports/j1", http.StatusNoContent, nil)

	var n atomic.Int32
	b.on("GET /exports/j1", func(*http.Request) reply {
		i := int(n.Add(1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		body := map[string]string{"job_id": "j1", "status": statuses[i]}
		if statuses[i] == JobCompleted {
			body["download_url"] = "https://files.example/j1.csv"
		}
		return reply{http.StatusOK, body}
	})
}

func TestExport_Success(t *testing.T) {
	backend, svc, o := newFixture(t)
	exportRoutes(backend, JobPending, JobProcessing, JobCompleted)

	def, res := svc.Export(validExport())
	assert.Equal(t, "export", def.Kind)
	assert.Equal(t, "c1", def.Subject)

	_, err := o.Create(context.Background(), def)
	require.NoError(t, err)

	assert.Equal(t, 42, res.Rows)
	assert.Equal(t, "j1", res.JobID)
	assert.Equal(t, JobCompleted, res.Status)
	assert.Equal(t, "https://files.example/j1.csv", res.DownloadURL)

	body := backend.Body("POST /exports")
	assert.Equal(t, "csv", body["format"])
	assert.Equal(t, map[string]any{"start": "2026-01-01", "end": "2026-01-31"}, body["dateRange"])
	assert.Equal(t, []any{"c1"}, body["contractIds"])

	polls := 0
	for _, c := range backend.Calls() {
		if c == "GET /exports/j1" {
			polls++
		}
	}
	assert.Equal(t, 3, polls)
}

func TestExport_JobFailedRollsBack(t *testing.T) {
	backend, svc, o := newFixture(t)
	exportRoutes(backend, JobProcessing, JobFailed)

	def, _ := svc.Export(validExport())
	id, err := o.Create(context.Background(), def)
	require.Error(t, err)

	wf, _ := o.Get(id)
	assert.Equal(t, "export job j1 failed: Export failed", wf.Error)
	assert.Equal(t, workflow.StepFailed, wf.Steps[3].Status)
	assert.True(t, wf.Steps[2].RolledBack)
	assert.Contains(t, backend.Calls(), "DELETE /exports/j1")
}

func TestExport_PollTimeout(t *testing.T) {
	backend, svc, o := newFixture(t)
	exportRoutes(backend, JobProcessing)

	def, _ := svc.Export(validExport())
	_, err := o.Create(context.Background(), def)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "export job j1 timed out")
}

func TestExport_InvalidRequestMakesNoCalls(t *testing.T) {
	backend, svc, o := newFixture(t)

	req := validExport()
	req.Metrics = nil
	def, _ := svc.Export(req)
	id, err := o.Create(context.Background(), def)
	require.Error(t, err)
	assert.ErrorIs(t, err, terms.ErrInvalid)
	assert.Empty(t, backend.Calls())

	wf, _ := o.Get(id)
	assert.Equal(t, workflow.StepFailed, wf.Steps[0].Status)
}

func TestExportSubject(t *testing.T) {
	assert.Equal(t, "", exportSubject(nil))
	assert.Equal(t, "c1", exportSubject([]string{"c1"}))
	assert.Equal(t, "c1-and-2-more", exportSubject([]string{"c1", "c2", "c3"}))
}
