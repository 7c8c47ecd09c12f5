package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "one step"
workflow:
  kind: export
  subject: c1
  name: Export
steps:
  - id: validate
expect:
  status: completed
`

func TestLoadScenario_Minimal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, WorkflowSpec{Kind: "export", Subject: "c1", Name: "Export"}, s.Workflow)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, "validate", s.Steps[0].ID)
	assert.Empty(t, s.Steps[0].Outcome)
	assert.Nil(t, s.Expect.Toasts)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario + "asertions: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nworkflow: {name: W}\nsteps: [{id: a}]\nexpect: {status: completed}\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nworkflow: {name: W}\nsteps: [{id: a}]\nexpect: {status: completed}\n",
			want: "description is required",
		},
		{
			name: "missing workflow name",
			yaml: "name: n\ndescription: d\nsteps: [{id: a}]\nexpect: {status: completed}\n",
			want: "workflow.name is required",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\nworkflow: {name: W}\nexpect: {status: completed}\n",
			want: "steps list is required",
		},
		{
			name: "duplicate step",
			yaml: "name: n\ndescription: d\nworkflow: {name: W}\nsteps: [{id: a}, {id: a}]\nexpect: {status: completed}\n",
			want: `duplicate id "a"`,
		},
		{
			name: "bad outcome",
			yaml: "name: n\ndescription: d\nworkflow: {name: W}\nsteps: [{id: a, outcome: maybe}]\nexpect: {status: completed}\n",
			want: `unknown outcome "maybe"`,
		},
		{
			name: "bad rollback",
			yaml: "name: n\ndescription: d\nworkflow: {name: W}\nsteps: [{id: a, rollback: later}]\nexpect: {status: completed}\n",
			want: `unknown rollback "later"`,
		},
		{
			name: "cancel unknown step",
			yaml: "name: n\ndescription: d\nworkflow: {name: W}\nsteps: [{id: a}]\ncancel_during: b\nexpect: {status: error}\n",
			want: `cancel_during: unknown step "b"`,
		},
		{
			name: "bad expected status",
			yaml: "name: n\ndescription: d\nworkflow: {name: W}\nsteps: [{id: a}]\nexpect: {status: running}\n",
			want: "expect.status must be completed or error",
		},
		{
			name: "unknown assertion type",
			yaml: "name: n\ndescription: d\nworkflow: {name: W}\nsteps: [{id: a}]\nexpect: {status: completed}\nassertions: [{type: vibes}]\n",
			want: `unknown assertion type "vibes"`,
		},
		{
			name: "short trace order",
			yaml: "name: n\ndescription: d\nworkflow: {name: W}\nsteps: [{id: a}]\nexpect: {status: completed}\nassertions: [{type: trace_order, events: [workflow.started]}]\n",
			want: "at least two events",
		},
		{
			name: "event names unknown step",
			yaml: "name: n\ndescription: d\nworkflow: {name: W}\nsteps: [{id: a}]\nexpect: {status: completed}\nassertions: [{type: trace_contains, event: step.started:b}]\n",
			want: `event "step.started:b" names unknown step`,
		},
		{
			name: "final state without expect",
			yaml: "name: n\ndescription: d\nworkflow: {name: W}\nsteps: [{id: a}]\nexpect: {status: completed}\nassertions: [{type: final_state, step: a}]\n",
			want: "expect is required for final_state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
