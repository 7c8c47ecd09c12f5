package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/collabflow/internal/terms"
	"github.com/roach88/collabflow/internal/workflow"
)

// AlertResult is filled in by the alert setup steps. Read it only after the
// workflow has finished.
type AlertResult struct {
	ConfigID  string   `json:"configId,omitempty"`
	Delivered []string `json:"delivered,omitempty"`
}

// SetupAlerts returns the 4-step alert setup workflow: validate
// thresholds, create the alert configuration, set up monitoring and send a
// test notification.
func (s *Service) SetupAlerts(cfg terms.AlertConfig) (workflow.Definition, *AlertResult) {
	res := &AlertResult{}

	def := workflow.Definition{
		Kind:    "alerts",
		Subject: cfg.ContractID,
		Name:    "Alert Setup",
		Steps: []workflow.StepDef{
			{
				ID:   "validate-thresholds",
				Name: "Validate thresholds",
				Action: func(context.Context) error {
					return s.validator.ValidateAlertConfig(cfg)
				},
			},
			{
				ID:   "create-config",
				Name: "Create alert configuration",
				Action: func(ctx context.Context) error {
					var out struct {
						ID string `json:"id"`
					}
					if err := s.api.Post(ctx, path("alerts"), cfg, &out); err != nil {
						return err
					}
					if out.ID == "" {
						return errors.New("alert response missing id")
					}
					res.ConfigID = out.ID
					return nil
				},
				Rollback: func(ctx context.Context) error {
					return s.api.Delete(ctx, path("alerts", res.ConfigID))
				},
			},
			{
				ID:   "setup-monitoring",
				Name: "Set up monitoring",
				Action: func(ctx context.Context) error {
					body := map[string]any{"enabled": true, "contractId": cfg.ContractID}
					return s.api.Post(ctx, path("alerts", res.ConfigID, "monitoring"), body, nil)
				},
				Rollback: func(ctx context.Context) error {
					return s.api.Delete(ctx, path("alerts", res.ConfigID, "monitoring"))
				},
			},
			{
				ID:   "test-delivery",
				Name: "Test notification delivery",
				Action: func(ctx context.Context) error {
					var out struct {
						Delivered []string `json:"delivered"`
						Failed    []string `json:"failed"`
					}
					if err := s.api.Post(ctx, path("alerts", res.ConfigID, "test"), nil, &out); err != nil {
						return err
					}
					if len(out.Failed) > 0 {
						return fmt.Errorf("test notification was not delivered to %s", strings.Join(out.Failed, ", "))
					}
					res.Delivered = out.Delivered
					return nil
				},
			},
		},
	}
	return def, res
}
