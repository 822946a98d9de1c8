// Package http implements the HTTP handlers of the trace editor.
// Handlers stay thin: they parse and validate the request, delegate to the
// services layer and render the result.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → DatasetService → session.Store
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Routes
//
// DatasetHandler is mounted at /api/sessions. Every route below
// /api/sessions/{sessionID} runs through SessionCtx, which rejects ids that
// are not UUIDs and tags the request context with the session id for
// logging. Row and marker indexes are parsed by IndexCtx.
//
// Editing commands answer with the status line of the command:
//
//	{"message": "Updated point 3 to (12, 4.5)"}
//
// # Error Handling
//
// Errors are rendered as RFC 7807 Problem Details by internal/errors:
//
//	{
//	    "type": "/errors/dataset/index-out-of-range",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "row index out of range: 9 (rows: 4)",
//	    "error_code": "INDEX_OUT_OF_RANGE"
//	}
//
// A filter that matches no rows is not an error. Preview and plot routes
// answer 200 with {"status": "empty", "message": "No data matches the
// selected filters"}.
//
// # WebSocket Support
//
// WebSocketHandler upgrades GET /ws?session={id} and registers the
// connection with the hub, which pushes dataset_changed events after every
// successful edit of that session.
//
// # Testing
//
// Handlers are tested with httptest against a real DatasetService.
package http
