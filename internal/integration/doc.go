// Package integration defines the concrete workflows run by the
// orchestrator: brand onboarding, content linking, analytics export and
// alert setup.
//
// Each builder on Service returns a workflow.Definition whose step actions
// call the backend through an API, plus a result value the steps fill in as
// they succeed. Builders never perform I/O themselves; everything happens
// when the orchestrator runs the steps.
//
// The OAuth wait and the export job poll are bounded loops inside their
// step actions, paced by a Timing profile.
package integration
