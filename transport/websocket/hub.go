// Package websocket connects browser renderers to robot sessions. Each
// client receives a model snapshot after every transition and may send
// key and pointer input that is routed into the motion service.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/maca/robotgrid/logger"
	"github.com/maca/robotgrid/monitor"
	"github.com/maca/robotgrid/robot/engine"
	"github.com/maca/robotgrid/robot/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Outbound buffer per client. Snapshots arrive at tick rate while
	// the robot is in motion.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// Message represents an outbound WebSocket message.
type Message struct {
	SessionID string           `json:"session_id"`
	Event     string           `json:"event"`
	Snapshot  *engine.Snapshot `json:"snapshot,omitempty"`
	Data      interface{}      `json:"data,omitempty"`
}

// InboundMessage is an input event sent by a renderer client.
type InboundMessage struct {
	Type    string `json:"type"` // keydown, keyup, pointerdown, pointerup, toggle
	Key     string `json:"key,omitempty"`
	Control string `json:"control,omitempty"`
}

// Client represents one connected renderer.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub maintains the set of active clients, broadcasts snapshots to them,
// and routes their input into the motion service.
type Hub struct {
	service service.MotionService

	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Outbound messages to clients
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client
}

// NewHub creates a new WebSocket hub routing inbound input to svc.
func NewHub(svc service.MotionService) *Hub {
	return &Hub{
		service:    svc,
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS handles WebSocket requests from renderer clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		sessionID: sessionID,
	}

	client.hub.register <- client

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// BroadcastSnapshot sends a model snapshot to all clients of a session.
// Safe to call from session runner goroutines.
func (h *Hub) BroadcastSnapshot(sessionID string, snap engine.Snapshot) {
	h.broadcast <- &Message{
		SessionID: sessionID,
		Event:     "snapshot",
		Snapshot:  &snap,
	}
}

// BroadcastEvent sends a custom event to all clients of a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.broadcast <- &Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true
	monitor.IncConnectedRenderers()

	logger.Log.Infow("renderer connected",
		"session", client.sessionID,
		"clients", len(h.sessions[client.sessionID]))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
			monitor.DecConnectedRenderers()

			// Clean up empty sessions
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}

			logger.Log.Infow("renderer disconnected",
				"session", client.sessionID,
				"clients", len(clients))
		}
	}
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Errorw("failed to marshal broadcast message", "error", err)
		return
	}

	if clients, ok := h.sessions[message.SessionID]; ok {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				// Client's send channel is full, drop it
				h.unregisterClient(client)
			}
		}
	}
}

// routeInput translates an inbound client message into a service call.
// Unknown message types interrupt the robot, the same safe default as an
// unbound key.
func (h *Hub) routeInput(ctx context.Context, sessionID string, msg InboundMessage) error {
	var err error
	switch msg.Type {
	case "keydown":
		_, err = h.service.KeyDown(ctx, sessionID, msg.Key)
	case "keyup":
		_, err = h.service.KeyUp(ctx, sessionID, msg.Key)
	case "pointerdown":
		_, err = h.service.ControlDown(ctx, sessionID, msg.Control)
	case "pointerup":
		_, err = h.service.ControlUp(ctx, sessionID)
	case "toggle":
		_, err = h.service.ToggleMode(ctx, sessionID)
	default:
		_, err = h.service.Interrupt(ctx, sessionID)
	}
	return err
}

// readPump pumps input messages from the WebSocket connection into the
// motion service
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warnw("websocket read error", "error", err)
			}
			break
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Log.Debugw("ignoring malformed input message", "error", err)
			continue
		}

		if err := c.hub.routeInput(context.Background(), c.sessionID, msg); err != nil {
			logger.Log.Warnw("input routing failed",
				"session", c.sessionID,
				"type", msg.Type,
				"error", err)
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
// One JSON message per frame so clients can decode each frame directly.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
