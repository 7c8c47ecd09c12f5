// Package workflow implements the integration workflow orchestrator.
//
// A workflow is a named, fixed, ordered list of steps. Each step is an
// asynchronous unit of work (usually one remote API call) with an optional
// compensating rollback. The orchestrator runs the steps strictly in order,
// tracks per-step and per-workflow status in a Registry, and rolls back the
// already-completed steps in reverse order when a later step fails.
//
// STATE MACHINE:
//
//	idle --(execution starts)--> running
//	running --(all steps completed)--> completed
//	running --(a step action fails)--> error   (after rollback)
//	running --(Cancel)--> error "Cancelled by user"
//
// Terminal statuses are sticky: once a workflow reaches completed or error,
// nothing moves it back to running or overwrites it. Steps move
// pending -> running -> {completed | error}; a rolled-back step keeps its
// completed status and is flagged RolledBack.
//
// OBSERVATION:
//
// The orchestrator never talks to the user directly. It emits discrete
// Events (stamped by a logical Clock) to an EventSink; notifiers, audit
// recorders and websocket streams subscribe there.
//
// CONCURRENCY:
//
// Steps of one workflow run on a single goroutine and never interleave.
// Different workflows may run concurrently (Start); the Registry is
// mutex-guarded and hands out value snapshots.
package workflow
