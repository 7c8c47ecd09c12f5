package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/collabflow/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Update bool
	Filter string
}

// ScenarioReport is the outcome of one scenario file.
type ScenarioReport struct {
	Name       string   `json:"name"`
	File       string   `json:"file"`
	Pass       bool     `json:"pass"`
	WorkflowID string   `json:"workflow_id,omitempty"`
	Golden     string   `json:"golden"`
	Errors     []string `json:"errors,omitempty"`
}

// ScenarioSummary is the combined outcome of a scenario run.
type ScenarioSummary struct {
	Passed  int              `json:"passed"`
	Failed  int              `json:"failed"`
	Reports []ScenarioReport `json:"reports"`
}

func (s ScenarioSummary) String() string {
	var b strings.Builder
	for _, r := range s.Reports {
		mark := "✓"
		if !r.Pass {
			mark = "✗"
		}
		fmt.Fprintf(&b, "%s %s (%s)\n", mark, r.Name, r.Golden)
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "    %s\n", e)
		}
	}
	fmt.Fprintf(&b, "%d passed, %d failed", s.Passed, s.Failed)
	return b.String()
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file-or-dir>...",
		Short: "Run scripted workflow scenarios against their golden traces",
		Long: `Run YAML scenarios through the orchestrator with scripted step
outcomes, deterministic ids and clock, and compare each trace with its
golden file.

Golden files live in a golden/ directory next to the scenarios directory:
scenarios/foo.yaml is compared with golden/foo.golden.

Examples:
  collabflow scenario internal/harness/testdata/scenarios
  collabflow scenario scenarios/export_poll_failure.yaml --update`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden files with the current traces")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name contains this string")

	return cmd
}

func (o *ScenarioOptions) run(cmd *cobra.Command, args []string) error {
	out := o.formatter(cmd)

	files, err := scenarioFiles(args)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	var summary ScenarioSummary
	for _, file := range files {
		s, err := harness.LoadScenario(file)
		if err != nil {
			_ = out.Error(ErrCodeScenario, err.Error(), map[string]string{"file": file})
			return WrapExitError(ExitCommandError, "invalid scenario", err)
		}
		if o.Filter != "" && !strings.Contains(s.Name, o.Filter) {
			continue
		}
		out.VerboseLog("running %s", s.Name)

		report, err := o.runOne(file, s)
		if err != nil {
			return WrapExitError(ExitCommandError, "scenario "+s.Name, err)
		}
		if report.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Reports = append(summary.Reports, report)
	}

	if err := out.Success(summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenarios failed", summary.Failed))
	}
	return nil
}

func (o *ScenarioOptions) runOne(file string, s *harness.Scenario) (ScenarioReport, error) {
	golden := goldenPath(file, s.Name)
	report := ScenarioReport{Name: s.Name, File: file, Golden: golden}

	result, err := harness.Run(s)
	if err != nil {
		return report, err
	}
	report.WorkflowID = result.WorkflowID
	report.Errors = append(report.Errors, result.Errors...)

	got, err := harness.Snapshot(s.Name, result)
	if err != nil {
		return report, err
	}

	if o.Update {
		if err := os.MkdirAll(filepath.Dir(golden), 0o755); err != nil {
			return report, err
		}
		if err := os.WriteFile(golden, got, 0o644); err != nil {
			return report, err
		}
	} else {
		want, err := os.ReadFile(golden)
		switch {
		case os.IsNotExist(err):
			report.Errors = append(report.Errors, "golden file missing (run with --update)")
		case err != nil:
			return report, err
		case !bytes.Equal(want, got):
			report.Errors = append(report.Errors, "trace differs from golden file")
		}
	}

	report.Pass = len(report.Errors) == 0
	return report, nil
}

// scenarioFiles expands directories into their *.yaml files, sorted.
func scenarioFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, err
			}
			files = append(files, matches...)
		}
	}
	return files, nil
}

// goldenPath maps dir/scenarios/x.yaml to dir/golden/<name>.golden.
func goldenPath(file, name string) string {
	return filepath.Join(filepath.Dir(filepath.Dir(file)), "golden", name+".golden")
}
