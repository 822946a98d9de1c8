// Package services implements the business layer between the HTTP shell and
// the editing sessions.
//
// # Dataset Service
//
// DatasetService runs every user action as a session.Command against the
// caller's session:
//
//	outcome, err := svc.Execute(ctx, sessionID, session.AddRowCommand{X: 20, Y: 9})
//
// Each execution is traced, counted in the business metrics and logged with
// the session id. Mutating commands bump the session's revision and publish
// a dataset_changed event through the Notifier so that watching browsers
// re-run the filter and redraw the plot. Read paths (summary, preview, plot,
// export) take the same per-session lock but publish nothing.
//
// # Health Service
//
// HealthService reports liveness, readiness and version information. It only
// needs counters from the session manager and the websocket hub.
//
// # Errors
//
// Services return the sentinel errors of internal/session and
// internal/markers wrapped with context; internal/errors maps them to
// RFC 7807 responses.
package services
