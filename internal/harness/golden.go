package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/collabflow/internal/workflow"
)

// TraceSnapshot is the golden form of a scenario run. Timestamps are left
// out; everything else is deterministic.
type TraceSnapshot struct {
	ScenarioName string          `json:"scenario_name"`
	WorkflowID   string          `json:"workflow_id"`
	Status       workflow.Status `json:"status"`
	Error        string          `json:"error,omitempty"`
	Steps        []workflow.Step `json:"steps"`
	Trace        []TraceEvent    `json:"trace"`
	Toasts       []string        `json:"toasts"`
}

// Snapshot renders result as indented JSON with a trailing newline.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snap := TraceSnapshot{
		ScenarioName: scenarioName,
		WorkflowID:   result.WorkflowID,
		Status:       result.Final.Status,
		Error:        result.Final.Error,
		Steps:        result.Final.Steps,
		Trace:        result.Trace,
		Toasts:       result.Toasts,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
