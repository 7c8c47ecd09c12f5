package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/collabflow/internal/terms"
	"github.com/roach88/collabflow/internal/workflow"
)

// Export job statuses reported by the backend.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// ExportResult is filled in by the export steps. Read it only after the
// workflow has finished.
type ExportResult struct {
	Rows        int    `json:"rows"`
	JobID       string `json:"jobId,omitempty"`
	Status      string `json:"status,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

type exportJob struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	DownloadURL string `json:"download_url"`
	Error       string `json:"error"`
}

// Export returns the 4-step analytics export workflow: validate the
// request, aggregate analytics, create the export job and poll it until it
// reaches a terminal status.
func (s *Service) Export(req terms.ExportRequest) (workflow.Definition, *ExportResult) {
	res := &ExportResult{}

	def := workflow.Definition{
		Kind:    "export",
		Subject: exportSubject(req.ContractIDs),
		Name:    "Export",
		Steps: []workflow.StepDef{
			{
				ID:   "validate",
				Name: "Validate export parameters",
				Action: func(context.Context) error {
					return s.validator.ValidateExport(req)
				},
			},
			{
				ID:   "aggregate",
				Name: "Aggregate analytics data",
				Action: func(ctx context.Context) error {
					var out struct {
						Rows int `json:"rows"`
					}
					body := map[string]any{
						"contractIds": req.ContractIDs,
						"metrics":     req.Metrics,
						"dateRange":   req.DateRange,
					}
					if err := s.api.Post(ctx, path("analytics", "aggregate"), body, &out); err != nil {
						return err
					}
					res.Rows = out.Rows
					return nil
				},
			},
			{
				ID:   "create-job",
				Name: "Create export job",
				Action: func(ctx context.Context) error {
					var job exportJob
					if err := s.api.Post(ctx, path("exports"), req, &job); err != nil {
						return err
					}
					if job.JobID == "" {
						return errors.New("export response missing job_id")
					}
					res.JobID, res.Status = job.JobID, job.Status
					return nil
				},
				Rollback: func(ctx context.Context) error {
					return s.api.Delete(ctx, path("exports", res.JobID))
				},
			},
			{
				ID:   "poll-job",
				Name: "Wait for export job",
				Action: func(ctx context.Context) error {
					return s.pollExport(ctx, res)
				},
			},
		},
	}
	return def, res
}

// pollExport polls the job until it completes or fails, bounded by the
// export timing.
func (s *Service) pollExport(ctx context.Context, res *ExportResult) error {
	var failure error
	err := poll(ctx, s.timing.ExportPollInterval, s.timing.ExportTimeout, func(ctx context.Context) (bool, error) {
		var job exportJob
		if err := s.api.Get(ctx, path("exports", res.JobID), &job); err != nil {
			return false, err
		}
		res.Status = job.Status
		s.logger.Debug("export job polled", "job_id", res.JobID, "status", job.Status)

		switch job.Status {
		case JobCompleted:
			res.DownloadURL = job.DownloadURL
			return true, nil
		case JobFailed:
			msg := job.Error
			if msg == "" {
				msg = "Export failed"
			}
			failure = fmt.Errorf("export job %s failed: %s", res.JobID, msg)
			return true, nil
		default:
			return false, nil
		}
	})
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return fmt.Errorf("export job %s %w", res.JobID, err)
		}
		return err
	}
	return failure
}

func exportSubject(contractIDs []string) string {
	switch len(contractIDs) {
	case 0:
		return ""
	case 1:
		return contractIDs[0]
	default:
		return fmt.Sprintf("%s-and-%d-more", contractIDs[0], len(contractIDs)-1)
	}
}
