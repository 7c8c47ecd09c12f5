// Package harness runs scripted workflow scenarios deterministically.
//
// A scenario describes a workflow whose step outcomes are scripted instead
// of calling a backend. The harness runs it through a real Orchestrator,
// Notifier and audit Recorder, then checks the expected outcome, the
// assertions and (in tests) a golden trace.
//
// # Scenario Format
//
//	name: export_poll_failure
//	description: "Export job fails while polling; the job is deleted"
//	workflow:
//	  kind: export
//	  subject: contract-42
//	  name: Export Analytics
//	steps:
//	  - id: validate
//	  - id: create-job
//	    rollback: ok
//	  - id: poll-job
//	    outcome: fail
//	    error: "export job j1 failed: Export failed"
//	cancel_during: ""          # optional step id; Cancel is called while it runs
//	expect:
//	  status: error
//	  error: "export job j1 failed: Export failed"
//	  toasts:
//	    - "Export Analytics: Step 1/3 completed"
//	    - "Export Analytics: Step 2/3 completed"
//	assertions:
//	  - type: trace_contains
//	    event: step.rolled_back:create-job
//	  - type: trace_order
//	    events: [step.failed:poll-job, step.rolled_back:create-job]
//	  - type: trace_count
//	    event: step.completed
//	    count: 2
//	  - type: final_state
//	    step: create-job
//	    expect: { status: completed, rolled_back: true }
//
// Step outcomes are ok (default), fail and panic. Rollbacks are none
// (default), ok and fail.
//
// # Event References
//
// Assertions name events as "<type>" or "<type>:<step id>", for example
// "workflow.completed" or "step.failed:poll-job".
//
// # Determinism
//
// Every scenario runs with testutil.SequentialIDs, a
// testutil.DeterministicClock and a fresh in-memory SQLite audit store, so
// ids, sequence numbers and the trace are identical across runs.
package harness
