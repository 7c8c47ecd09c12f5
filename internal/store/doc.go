// Package store provides the SQLite-backed audit trail for workflows.
//
// Two tables:
//   - workflows: the latest snapshot of each workflow (upserted)
//   - workflow_events: the append-only event log, keyed by (workflow_id, seq)
//
// The store is for inspection (the history command, the server). It is
// never read back to resume or retry a workflow.
//
// # Ordering
//
// Event queries order by seq ASC, id ASC. seq comes from the orchestrator's
// logical clock, so ordering never depends on wall-clock timestamps.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
