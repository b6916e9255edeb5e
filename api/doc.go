// Package api provides the HTTP REST surface for robot sessions.
//
// The api package implements:
//   - Session management endpoints
//   - Input event endpoints (keyboard, pointer controls, mode toggle)
//   - Script replay
//   - Snapshot, SVG view, and event log retrieval
//   - WebSocket upgrade handling for live renderers
//   - Prometheus metrics and static file serving
//
// Endpoints:
//
// Session Management:
//   - POST   /api/sessions         - Create new session
//   - GET    /api/sessions         - List all sessions
//   - GET    /api/sessions/{id}    - Get specific session
//   - DELETE /api/sessions/{id}    - Delete session
//
// Robot State:
//   - GET  /api/sessions/{id}/state - Current model snapshot
//   - GET  /api/sessions/{id}/view  - SVG rendering of the board
//   - GET  /api/sessions/{id}/log   - Paginated transition log
//   - POST /api/sessions/{id}/reset - Restore the initial model
//
// Input Events:
//   - POST /api/sessions/{id}/keydown          {"key": "ArrowUp"}
//   - POST /api/sessions/{id}/keyup            {"key": "ArrowUp"}
//   - POST /api/sessions/{id}/controls/press   {"control": "up"}
//   - POST /api/sessions/{id}/controls/release
//   - POST /api/sessions/{id}/toggle
//   - POST /api/sessions/{id}/interrupt
//   - POST /api/sessions/{id}/script           {"script": "press up wait 500 release"}
//
// Configuration:
//   - GET /api/configs - List available board configurations
//
// All JSON endpoints return errors as:
//
//	{"error": "error message"}
//
// Directional key presses are dropped while the robot is in motion; the
// response's "accepted" field reports whether the event reached the
// machine. Pointer controls are always accepted.
package api
