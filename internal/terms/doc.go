// Package terms validates the JSON payloads exchanged with the
// collaboration backend: export requests, alert configurations and
// negotiation terms.
//
// Validation happens in two layers. An embedded CUE schema checks shape,
// enumerations and numeric bounds; Go code then checks what CUE cannot
// express cleanly, such as a date range whose end precedes its start.
//
// Parse* functions take raw JSON; Validate* functions take Go values and
// run the same checks.
package terms
