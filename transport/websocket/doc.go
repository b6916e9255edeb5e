// Package websocket provides the real-time transport for robot sessions.
//
// The websocket package implements:
//   - Snapshot broadcasting after every state transition
//   - Session-aware connections
//   - Raw keyboard and pointer input forwarding
//   - Connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// connections. Each client connection is handled by dedicated read and
// write goroutines.
//
// Message Protocol:
//
// Messages are JSON-encoded:
//   - Incoming: {"type": "keydown", "key": "ArrowUp"} or
//     {"type": "pointerdown", "control": "left"}
//   - Outgoing: {"session_id": "...", "event": "snapshot", "snapshot": {...}}
//     after each state transition
//
// Incoming types are keydown, keyup, pointerdown, pointerup, and toggle.
// Anything else is treated as an interrupt, matching the keyboard fallback.
//
// Session Integration:
//
// Clients specify their session ID via query parameter (?session=abc1)
// when establishing the connection. Snapshots are broadcast only to
// clients connected to the same session.
//
// Usage:
//
//	hub := websocket.NewHub(motionService)
//	go hub.Run()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
