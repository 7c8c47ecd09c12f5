// Package notify turns workflow events into user-facing notifications and
// fans them out to live subscribers.
//
// The orchestrator never notifies directly. It emits workflow.Event values to
// a workflow.EventSink; the sinks in this package decide what to do with them:
//
//   - Notifier renders progress and completion toasts
//   - Broadcaster hands every event to subscribers (websocket clients, tests)
//   - Multi combines several sinks into one
//
// Failures are never toasted here. Callers surface the error returned by
// Create through their own error path.
package notify
