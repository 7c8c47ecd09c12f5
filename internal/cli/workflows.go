package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/collabflow/internal/integration"
	"github.com/roach88/collabflow/internal/terms"
	"github.com/roach88/collabflow/internal/workflow"
)

// buildFunc returns the workflow to run, its result value and a function
// rendering the text summary once the workflow has finished.
type buildFunc func(svc *integration.Service) (workflow.Definition, any, func() string)

// runWorkflow starts the workflow and waits for it. SIGINT/SIGTERM cancel
// it, which rolls back the completed steps.
func (o *RootOptions) runWorkflow(cmd *cobra.Command, build buildFunc) error {
	rt, err := o.newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	def, result, summary := build(rt.service)
	out := o.formatter(cmd)

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, done, err := rt.orch.Start(cmd.Context(), def)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start workflow", err)
	}
	out.VerboseLog("started %s", id)

	var runErr error
	select {
	case runErr = <-done:
	case <-sigCtx.Done():
		rt.logger.Info("interrupted, cancelling workflow", "workflow_id", id)
		rt.orch.Cancel(id)
		runErr = <-done
	}

	if runErr != nil {
		wf, _ := rt.orch.Get(id)
		details := map[string]any{"workflow_id": id, "progress": fmt.Sprintf("%d/%d", wf.CompletedSteps(), len(wf.Steps))}
		var stepErr *workflow.StepError
		if errors.As(runErr, &stepErr) {
			details["step"] = stepErr.StepID
		}
		msg := wf.Error
		if msg == "" {
			msg = runErr.Error()
		}
		_ = out.Error(ErrCodeWorkflowFailed, fmt.Sprintf("%s failed: %s", def.Name, msg), details)
		return WrapExitError(ExitFailure, def.Name+" failed", runErr)
	}

	return out.Workflow(id, result, summary())
}

// NewOnboardCommand creates the onboard command.
func NewOnboardCommand(rootOpts *RootOptions) *cobra.Command {
	var platforms []string

	cmd := &cobra.Command{
		Use:   "onboard <brand-id>",
		Short: "Onboard a brand: connect social accounts, create its dashboard, set default alerts",
		Long: `Onboard a brand.

Each platform is connected through OAuth: the authorization URL is printed
and the command waits until you confirm. If a later step fails, the
connected accounts are disconnected and the dashboard is removed.

Example:
  collabflow onboard brand-7 --platform instagram --platform tiktok`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := integration.OnboardRequest{BrandID: args[0], Platforms: platforms}
			return rootOpts.runWorkflow(cmd, func(svc *integration.Service) (workflow.Definition, any, func() string) {
				def, res := svc.OnboardBrand(req)
				return def, res, func() string {
					return fmt.Sprintf("%s completed successfully!\n  connected: %s\n  dashboard: %s",
						def.Name, strings.Join(res.Connected, ", "), res.DashboardID)
				}
			})
		},
	}

	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil,
		"platform to connect (repeatable; one of "+strings.Join(integration.Platforms, ", ")+")")
	_ = cmd.MarkFlagRequired("platform")

	return cmd
}

// NewLinkCommand creates the link command.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link <contract-id> <content-url>",
		Short: "Link a published post to a contract and start collecting its metrics",
		Long: `Link a published post to a contract.

The URL must point at a post on a supported platform. Ownership is
verified before the link is created; if starting collection fails the link
is removed again.

Example:
  collabflow link contract-3 https://www.instagram.com/p/Cx1abc/`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := integration.LinkRequest{ContractID: args[0], URL: args[1]}
			return rootOpts.runWorkflow(cmd, func(svc *integration.Service) (workflow.Definition, any, func() string) {
				def, res := svc.LinkContent(req)
				return def, res, func() string {
					return fmt.Sprintf("%s completed successfully!\n  %s post %q linked as %s",
						def.Name, res.Platform, res.Preview.Title, res.LinkID)
				}
			})
		},
	}
	return cmd
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Request   string
	Format    string
	From      string
	To        string
	Metrics   []string
	Contracts []string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export contract analytics to a file",
		Long: `Aggregate analytics for one or more contracts and export them.

The request comes either from flags or from a JSON file (--request) with
the shape {format, dateRange: {start, end}, metrics, contractIds}. The
request is validated by the workflow's first step.

Examples:
  collabflow export --contract c1 --metric views --metric likes --from 2026-01-01 --to 2026-01-31
  collabflow export --request export.json --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request()
			if err != nil {
				return err
			}
			return opts.runWorkflow(cmd, func(svc *integration.Service) (workflow.Definition, any, func() string) {
				def, res := svc.Export(req)
				return def, res, func() string {
					return fmt.Sprintf("%s completed successfully!\n  job %s: %d rows\n  download: %s",
						def.Name, res.JobID, res.Rows, res.DownloadURL)
				}
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Request, "request", "", "JSON export request file (overrides the other flags)")
	f.StringVar(&opts.Format, "file-format", "csv", "export file format (csv|xlsx|pdf|json)")
	f.StringVar(&opts.From, "from", "", "first day, YYYY-MM-DD")
	f.StringVar(&opts.To, "to", "", "last day, YYYY-MM-DD")
	f.StringSliceVarP(&opts.Metrics, "metric", "m", nil, "metric to export (repeatable)")
	f.StringSliceVarP(&opts.Contracts, "contract", "c", nil, "contract id (repeatable)")

	return cmd
}

func (o *ExportOptions) request() (terms.ExportRequest, error) {
	if o.Request == "" {
		return terms.ExportRequest{
			Format:      o.Format,
			DateRange:   terms.DateRange{Start: o.From, End: o.To},
			Metrics:     o.Metrics,
			ContractIDs: o.Contracts,
		}, nil
	}
	data, err := os.ReadFile(o.Request)
	if err != nil {
		return terms.ExportRequest{}, WrapExitError(ExitCommandError, "failed to read request file", err)
	}
	var req terms.ExportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return terms.ExportRequest{}, WrapExitError(ExitCommandError, "failed to decode request file", err)
	}
	return req, nil
}

// AlertsOptions holds flags for the alerts command.
type AlertsOptions struct {
	*RootOptions
	Request    string
	Thresholds []string
	Channels   []string
}

// NewAlertsCommand creates the alerts command.
func NewAlertsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AlertsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "alerts [contract-id]",
		Short: "Configure performance alerts for a contract",
		Long: `Create an alert configuration, start monitoring and send a test
notification to every channel.

Thresholds are written as <metric><operator><value>, for example
"engagement_rate<0.02" or "views>=10000".

Examples:
  collabflow alerts contract-9 --threshold "engagement_rate<0.02" --channel email --channel slack
  collabflow alerts --request alerts.json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.alertConfig(args)
			if err != nil {
				return err
			}
			return opts.runWorkflow(cmd, func(svc *integration.Service) (workflow.Definition, any, func() string) {
				def, res := svc.SetupAlerts(cfg)
				return def, res, func() string {
					return fmt.Sprintf("%s completed successfully!\n  config %s, test delivered to: %s",
						def.Name, res.ConfigID, strings.Join(res.Delivered, ", "))
				}
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Request, "request", "", "JSON alert config file (overrides the other flags)")
	f.StringArrayVarP(&opts.Thresholds, "threshold", "t", nil, "threshold <metric><op><value> (repeatable)")
	f.StringSliceVar(&opts.Channels, "channel", nil, "notification channel (repeatable)")

	return cmd
}

func (o *AlertsOptions) alertConfig(args []string) (terms.AlertConfig, error) {
	if o.Request != "" {
		data, err := os.ReadFile(o.Request)
		if err != nil {
			return terms.AlertConfig{}, WrapExitError(ExitCommandError, "failed to read request file", err)
		}
		var cfg terms.AlertConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return terms.AlertConfig{}, WrapExitError(ExitCommandError, "failed to decode request file", err)
		}
		return cfg, nil
	}

	if len(args) == 0 {
		return terms.AlertConfig{}, NewExitError(ExitCommandError, "contract id is required without --request")
	}
	cfg := terms.AlertConfig{ContractID: args[0], NotificationChannels: o.Channels}
	for _, raw := range o.Thresholds {
		th, err := ParseThreshold(raw)
		if err != nil {
			return terms.AlertConfig{}, WrapExitError(ExitCommandError, "invalid --threshold", err)
		}
		cfg.Thresholds = append(cfg.Thresholds, th)
	}
	return cfg, nil
}

var thresholdPattern = regexp.MustCompile(`^\s*([a-z_]+)\s*(>=|<=|==|>|<)\s*([0-9]*\.?[0-9]+)\s*$`)

// ParseThreshold parses "<metric><operator><value>", e.g. "views>=10000".
// Metric names and value bounds are checked later by the workflow.
func ParseThreshold(s string) (terms.Threshold, error) {
	m := thresholdPattern.FindStringSubmatch(s)
	if m == nil {
		return terms.Threshold{}, fmt.Errorf("%q: want <metric><op><value>, e.g. engagement_rate<0.02", s)
	}
	v, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return terms.Threshold{}, fmt.Errorf("%q: %w", s, err)
	}
	return terms.Threshold{Metric: m[1], Operator: m[2], Value: v}, nil
}
