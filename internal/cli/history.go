package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/collabflow/internal/store"
	"github.com/roach88/collabflow/internal/workflow"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Kind   string
	Status string
	Limit  int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [workflow-id]",
		Short: "Show recorded workflows from the audit database",
		Long: `List workflows recorded in the audit database, newest first, or show
one workflow with its steps and event log.

Examples:
  collabflow history --kind export --status error
  collabflow history export_c1_0190f3a2-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Kind, "kind", "", "only workflows of this kind")
	f.StringVar(&opts.Status, "status", "", "only workflows with this status (idle|running|completed|error)")
	f.IntVar(&opts.Limit, "limit", 20, "maximum number of workflows (0 for all)")

	return cmd
}

// workflowDetail is the single-workflow view.
type workflowDetail struct {
	Workflow workflow.Workflow `json:"workflow"`
	Events   []workflow.Event  `json:"events"`
}

func (o *HistoryOptions) run(cmd *cobra.Command, args []string) error {
	cfg, err := o.config(cmd)
	if err != nil {
		return err
	}
	if cfg.Database == "" {
		return NewExitError(ExitCommandError, "no audit database configured")
	}
	if _, err := os.Stat(cfg.Database); err != nil {
		return WrapExitError(ExitCommandError, "audit database not found", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	out := o.formatter(cmd)
	ctx := cmd.Context()

	if len(args) == 1 {
		wf, err := st.ReadWorkflow(ctx, args[0])
		if errors.Is(err, workflow.ErrUnknownWorkflow) {
			_ = out.Error(ErrCodeNotFound, fmt.Sprintf("workflow %s not found", args[0]), nil)
			return NewExitError(ExitFailure, "workflow not found")
		}
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read workflow", err)
		}
		events, err := st.ReadEvents(ctx, wf.ID)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read events", err)
		}
		if out.Format == "json" {
			return out.Success(workflowDetail{Workflow: wf, Events: events})
		}
		writeDetail(cmd.OutOrStdout(), wf, events)
		return nil
	}

	if o.Status != "" && !workflow.Status(o.Status).Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --status %q", o.Status))
	}
	wfs, err := st.ListWorkflows(ctx, store.ListFilter{
		Kind:   o.Kind,
		Status: workflow.Status(o.Status),
		Limit:  o.Limit,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list workflows", err)
	}
	if out.Format == "json" {
		return out.Success(wfs)
	}
	writeList(cmd.OutOrStdout(), wfs)
	return nil
}

func writeList(w io.Writer, wfs []workflow.Workflow) {
	if len(wfs) == 0 {
		fmt.Fprintln(w, "no workflows recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tPROGRESS\tUPDATED")
	for _, wf := range wfs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\n",
			wf.ID, wf.Name, wf.Status, wf.CompletedSteps(), len(wf.Steps), wf.UpdatedAt.Format(time.RFC3339))
	}
	tw.Flush()
}

func writeDetail(w io.Writer, wf workflow.Workflow, events []workflow.Event) {
	fmt.Fprintf(w, "%s (%s)\n", wf.Name, wf.ID)
	fmt.Fprintf(w, "  status:   %s\n", wf.Status)
	if wf.Error != "" {
		fmt.Fprintf(w, "  error:    %s\n", wf.Error)
	}
	fmt.Fprintf(w, "  progress: %d/%d\n", wf.CompletedSteps(), len(wf.Steps))
	fmt.Fprintln(w, "  steps:")
	for i, s := range wf.Steps {
		line := fmt.Sprintf("    %d. %-22s %s", i+1, s.Name, s.Status)
		if s.RolledBack {
			line += " (rolled back)"
		}
		if s.Error != "" {
			line += ": " + s.Error
		}
		fmt.Fprintln(w, line)
	}
	if len(events) == 0 {
		return
	}
	fmt.Fprintln(w, "  events:")
	for _, ev := range events {
		parts := []string{fmt.Sprintf("    [%d] %s", ev.Seq, ev.Type)}
		if ev.StepID != "" {
			parts = append(parts, ev.StepID)
		}
		if ev.Error != "" {
			parts = append(parts, "error="+ev.Error)
		}
		fmt.Fprintln(w, strings.Join(parts, " "))
	}
}
