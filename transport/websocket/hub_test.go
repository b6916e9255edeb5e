package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/maca/robotgrid/robot/engine"
	"github.com/maca/robotgrid/robot/service"
	"github.com/maca/robotgrid/robot/session"
)

// newTestStack wires a hub to a real motion service so inbound input can
// be exercised end to end. Snapshots from runner transitions are routed
// back into the hub.
func newTestStack(t *testing.T) (*Hub, service.MotionService, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	var hub *Hub
	mgr := session.NewManager(ctx, func(sessionID string, snap engine.Snapshot) {
		hub.BroadcastSnapshot(sessionID, snap)
	})
	t.Cleanup(func() {
		mgr.StopAll()
		cancel()
	})

	svc := service.NewMotionService(mgr, staticConfigs{}, nil)
	hub = NewHub(svc)
	go hub.Run()

	info, err := svc.CreateSession(ctx, "default")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return hub, svc, info.ID
}

type staticConfigs struct{}

func (staticConfigs) GetDefault() *engine.GridConfig {
	return &engine.GridConfig{
		Name:           "Hub Test",
		GridSize:       5,
		CellSize:       32,
		StartFacing:    "down",
		TickIntervalMs: 5,
		RepeatDelayMs:  40,
	}
}

func (c staticConfigs) LoadConfig(name string) (*engine.GridConfig, error) {
	return c.GetDefault(), nil
}

func (staticConfigs) ListConfigs() ([]*service.ConfigInfo, error) {
	return nil, nil
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}
	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil)

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, sendBufferSize),
	}

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if len(hub.sessions["test-session"]) != 1 {
		t.Errorf("Expected 1 client in session, got %d", len(hub.sessions["test-session"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(nil)

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, sendBufferSize),
	}

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub(nil)
	sessionID := "multi-client-session"

	client1 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, sendBufferSize)}
	client2 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, sendBufferSize)}

	hub.registerClient(client1)
	hub.registerClient(client2)

	if len(hub.sessions[sessionID]) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", len(hub.sessions[sessionID]))
	}

	hub.unregisterClient(client1)

	if len(hub.sessions[sessionID]) != 1 {
		t.Errorf("Expected 1 client remaining in session, got %d", len(hub.sessions[sessionID]))
	}
	if !hub.sessions[sessionID][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastSnapshot(t *testing.T) {
	hub := NewHub(nil)
	sessionID := "broadcast-test"

	client := &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, sendBufferSize),
	}
	hub.registerClient(client)

	snap := engine.Snapshot{
		GridSize: 5,
		CellSize: 32,
		Seq:      3,
	}
	snap.Model.Position = engine.Position{X: 4, Y: 1}
	snap.Model.Facing = engine.Right

	hub.broadcastMessage(&Message{
		SessionID: sessionID,
		Event:     "snapshot",
		Snapshot:  &snap,
	})

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.SessionID != sessionID {
			t.Errorf("Expected sessionID %s, got %s", sessionID, message.SessionID)
		}
		if message.Event != "snapshot" {
			t.Errorf("Expected event 'snapshot', got %s", message.Event)
		}
		if message.Snapshot == nil || message.Snapshot.Model.Position != (engine.Position{X: 4, Y: 1}) {
			t.Error("Snapshot not correctly transmitted")
		}

	case <-time.After(100 * time.Millisecond):
		t.Error("No message received within timeout")
	}
}

func TestWebSocketUpgrade(t *testing.T) {
	hub, _, sessionID := newTestStack(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("sessionId"))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?sessionId=" + sessionID

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	conn.Close()
	time.Sleep(50 * time.Millisecond)
}

func TestWebSocketInputMovesRobot(t *testing.T) {
	hub, svc, sessionID := newTestStack(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("sessionId"))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?sessionId=" + sessionID

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)

	press := InboundMessage{Type: "keydown", Key: "ArrowRight"}
	if err := conn.WriteJSON(press); err != nil {
		t.Fatalf("Failed to send input message: %v", err)
	}

	// Every transition broadcasts a snapshot; the key press must show up
	// as the robot facing right.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var message Message
		if err := conn.ReadJSON(&message); err != nil {
			t.Fatalf("Failed to read snapshot: %v", err)
		}
		if message.Event != "snapshot" || message.Snapshot == nil {
			continue
		}
		if message.Snapshot.Model.Facing == engine.Right {
			break
		}
	}

	if err := conn.WriteJSON(InboundMessage{Type: "keyup", Key: "ArrowRight"}); err != nil {
		t.Fatalf("Failed to send release message: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := svc.GetSnapshot(context.Background(), sessionID)
		if err != nil {
			t.Fatalf("GetSnapshot failed: %v", err)
		}
		if snap.Model.Movement.Kind == engine.MoveIdle {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("robot did not stop after key release")
}
