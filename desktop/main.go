// Command desktop is a native viewer for the robot grid server. It creates
// a session over the REST API, streams snapshots over the WebSocket feed,
// and forwards keyboard input as raw key events so the hold-to-repeat
// behavior matches the browser client.
//
// Keys: arrows drive (or rotate, depending on the mode), space toggles the
// key mode, R resets the robot, Escape interrupts movement.
package main

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	headerHeight = 48
	screenWidth  = 512
	screenHeight = 512 + headerHeight
	baseURL      = "http://localhost:8080"
)

// Wire types mirroring the server's snapshot JSON.

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Movement struct {
	Kind      string `json:"kind"`
	Direction string `json:"direction,omitempty"`
}

type Model struct {
	Position Position `json:"position"`
	Facing   string   `json:"facing"`
	Movement Movement `json:"movement"`
	KeyMode  string   `json:"key_mode"`
}

type Subscriptions struct {
	RawKeys bool `json:"raw_keys"`
	Ticks   bool `json:"ticks"`
}

type Snapshot struct {
	Model         Model         `json:"model"`
	Subscriptions Subscriptions `json:"subscriptions"`
	GridSize      int           `json:"grid_size"`
	CellSize      int           `json:"cell_size"`
	Seq           int           `json:"seq"`
}

type SessionResponse struct {
	ID       string   `json:"id"`
	Snapshot Snapshot `json:"snapshot"`
}

type ServerMessage struct {
	SessionID string    `json:"session_id"`
	Event     string    `json:"event"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`
}

type InputMessage struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
}

// Game holds the latest snapshot and the WebSocket connection. The read
// loop is the only writer of snap; Update and Draw take the lock to read.
type Game struct {
	mu        sync.Mutex
	snap      Snapshot
	sessionID string
	conn      *websocket.Conn
	connected bool
}

func newGame() (*Game, error) {
	session, err := createSession()
	if err != nil {
		return nil, err
	}

	g := &Game{
		snap:      session.Snapshot,
		sessionID: session.ID,
	}

	if err := g.connect(); err != nil {
		return nil, err
	}
	go g.readLoop()

	return g, nil
}

func createSession() (*SessionResponse, error) {
	resp, err := http.Post(baseURL+"/api/sessions", "application/json", nil)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create session failed: %s - %s", resp.Status, string(body))
	}

	var session SessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("parse session response: %w", err)
	}
	return &session, nil
}

func (g *Game) connect() error {
	wsURL := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws", RawQuery: "session=" + url.QueryEscape(g.sessionID)}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	g.conn = conn
	g.connected = true
	return nil
}

func (g *Game) readLoop() {
	for {
		var msg ServerMessage
		if err := g.conn.ReadJSON(&msg); err != nil {
			g.mu.Lock()
			g.connected = false
			g.mu.Unlock()
			return
		}
		if msg.Snapshot != nil {
			g.mu.Lock()
			g.snap = *msg.Snapshot
			g.mu.Unlock()
		}
	}
}

func (g *Game) send(msg InputMessage) {
	if g.conn == nil {
		return
	}
	if err := g.conn.WriteJSON(msg); err != nil {
		log.Printf("send failed: %v", err)
	}
}

func (g *Game) reset() {
	resp, err := http.Post(fmt.Sprintf("%s/api/sessions/%s/reset", baseURL, g.sessionID), "application/json", nil)
	if err != nil {
		log.Printf("reset failed: %v", err)
		return
	}
	resp.Body.Close()
}

var keyNames = map[ebiten.Key]string{
	ebiten.KeyArrowLeft:  "ArrowLeft",
	ebiten.KeyArrowUp:    "ArrowUp",
	ebiten.KeyArrowRight: "ArrowRight",
	ebiten.KeyArrowDown:  "ArrowDown",
	ebiten.KeySpace:      " ",
}

// Update forwards key presses and releases. Press and release both go to
// the server so held arrows produce continuous movement there.
func (g *Game) Update() error {
	for key, name := range keyNames {
		if inpututil.IsKeyJustPressed(key) {
			g.send(InputMessage{Type: "keydown", Key: name})
		}
		if inpututil.IsKeyJustReleased(key) {
			g.send(InputMessage{Type: "keyup", Key: name})
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.send(InputMessage{Type: "interrupt"})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		go g.reset()
	}

	return nil
}

var (
	bgColor     = color.RGBA{0x1a, 0x1a, 0x1f, 0xff}
	gridColor   = color.RGBA{0x3a, 0x3a, 0x46, 0xff}
	robotColor  = color.RGBA{0x4f, 0xd1, 0xc5, 0xff}
	noseColor   = color.RGBA{0xe8, 0x6a, 0x5c, 0xff}
	headerColor = color.RGBA{0x24, 0x24, 0x2c, 0xff}
)

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)

	g.mu.Lock()
	snap := g.snap
	connected := g.connected
	g.mu.Unlock()

	vector.DrawFilledRect(screen, 0, 0, screenWidth, headerHeight, headerColor, false)

	status := fmt.Sprintf("(%d,%d) facing %s | %s | mode %s",
		snap.Model.Position.X, snap.Model.Position.Y,
		snap.Model.Facing, movementLabel(snap.Model.Movement), snap.Model.KeyMode)
	if !connected {
		status += " | DISCONNECTED"
	}
	ebitenutil.DebugPrintAt(screen, status, 8, 8)
	ebitenutil.DebugPrintAt(screen, "arrows: drive  space: toggle mode  R: reset  esc: stop", 8, 26)

	if snap.GridSize == 0 {
		return
	}

	cell := float32(screenWidth) / float32(snap.GridSize)

	for i := 0; i <= snap.GridSize; i++ {
		p := float32(i) * cell
		vector.StrokeLine(screen, p, headerHeight, p, screenHeight, 1, gridColor, false)
		vector.StrokeLine(screen, 0, headerHeight+p, screenWidth, headerHeight+p, 1, gridColor, false)
	}

	// Robot body with a nose marker on the facing edge.
	x := float32(snap.Model.Position.X) * cell
	y := headerHeight + float32(snap.Model.Position.Y)*cell
	pad := cell * 0.15
	vector.DrawFilledRect(screen, x+pad, y+pad, cell-2*pad, cell-2*pad, robotColor, false)

	nose := cell * 0.18
	cx := x + cell/2
	cy := y + cell/2
	switch snap.Model.Facing {
	case "up":
		vector.DrawFilledRect(screen, cx-nose/2, y+pad, nose, nose, noseColor, false)
	case "down":
		vector.DrawFilledRect(screen, cx-nose/2, y+cell-pad-nose, nose, nose, noseColor, false)
	case "left":
		vector.DrawFilledRect(screen, x+pad, cy-nose/2, nose, nose, noseColor, false)
	case "right":
		vector.DrawFilledRect(screen, x+cell-pad-nose, cy-nose/2, nose, nose, noseColor, false)
	}
}

func movementLabel(m Movement) string {
	if m.Kind == "starting" || m.Kind == "moving" {
		return m.Kind + " " + m.Direction
	}
	return m.Kind
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	game, err := newGame()
	if err != nil {
		log.Fatalf("Failed to start: %v (is the server running at %s?)", err, baseURL)
	}
	defer game.conn.Close()

	log.Printf("Session %s, watching at %s", game.sessionID, baseURL)

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Robot Grid")
	ebiten.SetTPS(60)

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
