// Command robotctl is a terminal client for the robot grid server.
//
// It drives a session over the REST API: create sessions, press and
// release the on-screen controls, toggle the key mode, replay scripts,
// and stream live snapshots over the WebSocket feed.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/maca/robotgrid/robot/engine"
	"github.com/maca/robotgrid/robot/service"
)

// Client talks to the robot grid REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) get(path string, result interface{}) error {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, result)
}

func (c *Client) post(path string, body interface{}, result interface{}) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		buf = bytes.NewReader(data)
	}

	resp, err := c.client.Post(c.baseURL+path, "application/json", buf)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, result)
}

func (c *Client) delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("DELETE %s: %w", path, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, nil)
}

func decodeResponse(resp *http.Response, result interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, string(body))
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "robotctl",
		Usage: "control a robot grid session from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "robot grid server URL",
				Value:   "http://localhost:8080",
				Sources: cli.EnvVars("ROBOTGRID_URL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create a new session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Usage: "board configuration ID"},
				},
				Action: runCreate,
			},
			{
				Name:   "sessions",
				Usage:  "list active sessions",
				Action: runSessions,
			},
			{
				Name:      "delete",
				Usage:     "delete a session",
				ArgsUsage: "<session>",
				Action:    runDelete,
			},
			{
				Name:      "state",
				Usage:     "print the current robot state",
				ArgsUsage: "<session>",
				Action:    runState,
			},
			{
				Name:      "press",
				Usage:     "press a directional control (left, up, right, down)",
				ArgsUsage: "<session> <direction>",
				Action:    runPress,
			},
			{
				Name:      "release",
				Usage:     "release the held control",
				ArgsUsage: "<session>",
				Action:    runRelease,
			},
			{
				Name:      "toggle",
				Usage:     "toggle between advance and rotate key modes",
				ArgsUsage: "<session>",
				Action:    runToggle,
			},
			{
				Name:      "interrupt",
				Usage:     "stop the robot immediately",
				ArgsUsage: "<session>",
				Action:    runInterrupt,
			},
			{
				Name:      "script",
				Usage:     "replay a motion script from a file (use - for stdin)",
				ArgsUsage: "<session> <file>",
				Action:    runScript,
			},
			{
				Name:      "log",
				Usage:     "show the session event log",
				ArgsUsage: "<session>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "limit", Value: 20},
					&cli.StringFlag{Name: "order", Value: "desc", Usage: "asc or desc"},
				},
				Action: runLog,
			},
			{
				Name:      "reset",
				Usage:     "reset the robot to its starting state",
				ArgsUsage: "<session>",
				Action:    runReset,
			},
			{
				Name:   "configs",
				Usage:  "list available board configurations",
				Action: runConfigs,
			},
			{
				Name:      "watch",
				Usage:     "stream live snapshots over the WebSocket feed",
				ArgsUsage: "<session>",
				Action:    runWatch,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func clientFor(cmd *cli.Command) *Client {
	return NewClient(cmd.String("url"))
}

func sessionArg(cmd *cli.Command) (string, error) {
	id := cmd.Args().First()
	if id == "" {
		return "", fmt.Errorf("session ID required")
	}
	return id, nil
}

func runCreate(ctx context.Context, cmd *cli.Command) error {
	c := clientFor(cmd)

	var body interface{}
	if configID := cmd.String("config"); configID != "" {
		body = map[string]string{"config_id": configID}
	}

	var info service.SessionInfo
	if err := c.post("/api/sessions", body, &info); err != nil {
		return err
	}

	fmt.Printf("Session created: %s (config %s)\n", info.ID, info.ConfigName)
	printSnapshot(&info.Snapshot)
	return nil
}

func runSessions(ctx context.Context, cmd *cli.Command) error {
	c := clientFor(cmd)

	var resp struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.get("/api/sessions", &resp); err != nil {
		return err
	}

	if resp.Count == 0 {
		fmt.Println("No active sessions")
		return nil
	}
	for _, s := range resp.Sessions {
		fmt.Printf("%s  config=%s  created=%s\n",
			s.ID, s.ConfigName, s.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func runDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}

	if err := clientFor(cmd).delete("/api/sessions/" + id); err != nil {
		return err
	}
	fmt.Printf("Session %s deleted\n", id)
	return nil
}

func runState(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}

	var snap engine.Snapshot
	if err := clientFor(cmd).get("/api/sessions/"+id+"/state", &snap); err != nil {
		return err
	}
	printSnapshot(&snap)
	return nil
}

func runPress(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}
	direction := cmd.Args().Get(1)
	if _, err := engine.ParseOrientation(direction); err != nil {
		return fmt.Errorf("direction must be one of left, up, right, down")
	}

	var result service.EventResult
	if err := clientFor(cmd).post("/api/sessions/"+id+"/controls/press",
		map[string]string{"control": direction}, &result); err != nil {
		return err
	}
	printEventResult(&result)
	return nil
}

func runRelease(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}

	var result service.EventResult
	if err := clientFor(cmd).post("/api/sessions/"+id+"/controls/release", nil, &result); err != nil {
		return err
	}
	printEventResult(&result)
	return nil
}

func runToggle(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}

	var result service.EventResult
	if err := clientFor(cmd).post("/api/sessions/"+id+"/toggle", nil, &result); err != nil {
		return err
	}
	fmt.Printf("Key mode: %s\n", result.Snapshot.Model.KeyMode)
	return nil
}

func runInterrupt(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}

	var result service.EventResult
	if err := clientFor(cmd).post("/api/sessions/"+id+"/interrupt", nil, &result); err != nil {
		return err
	}
	printEventResult(&result)
	return nil
}

func runScript(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}
	file := cmd.Args().Get(1)
	if file == "" {
		return fmt.Errorf("script file required")
	}

	var script []byte
	if file == "-" {
		script, err = io.ReadAll(os.Stdin)
	} else {
		script, err = os.ReadFile(file)
	}
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	var result service.ScriptResult
	if err := clientFor(cmd).post("/api/sessions/"+id+"/script",
		map[string]string{"script": string(script)}, &result); err != nil {
		return err
	}

	fmt.Printf("Script replayed: %d steps, %d dropped, %dms\n",
		result.StepsExecuted, result.DroppedInputs, result.DurationMs)
	printSnapshot(&result.Snapshot)
	return nil
}

func runLog(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/api/sessions/%s/log?page=%d&limit=%d&order=%s",
		id, cmd.Int("page"), cmd.Int("limit"), url.QueryEscape(cmd.String("order")))

	var log service.LogResponse
	if err := clientFor(cmd).get(path, &log); err != nil {
		return err
	}

	fmt.Printf("Events %d (page %d/%d)\n", log.TotalEvents, log.Page, log.TotalPages)
	for _, ev := range log.Events {
		moved := ""
		if ev.Moved {
			moved = fmt.Sprintf("  (%d,%d) -> (%d,%d)", ev.From.X, ev.From.Y, ev.To.X, ev.To.Y)
		}
		fmt.Printf("#%-4d %-14s facing=%-5s movement=%-8s mode=%-7s t=%dms%s\n",
			ev.Seq, ev.Event, ev.Facing, ev.Movement, ev.KeyMode, ev.TimeMs, moved)
	}
	return nil
}

func runReset(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}

	var resp struct {
		Message  string          `json:"message"`
		Snapshot engine.Snapshot `json:"snapshot"`
	}
	if err := clientFor(cmd).post("/api/sessions/"+id+"/reset", nil, &resp); err != nil {
		return err
	}
	fmt.Println(resp.Message)
	printSnapshot(&resp.Snapshot)
	return nil
}

func runConfigs(ctx context.Context, cmd *cli.Command) error {
	var configs []service.ConfigInfo
	if err := clientFor(cmd).get("/api/configs", &configs); err != nil {
		return err
	}

	for _, cfg := range configs {
		fmt.Printf("%-12s %dx%d  %s\n", cfg.ConfigID, cfg.GridSize, cfg.GridSize, cfg.Description)
	}
	return nil
}

// runWatch connects to the WebSocket feed and prints each snapshot as it
// arrives, until interrupted.
func runWatch(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}

	base, err := url.Parse(cmd.String("url"))
	if err != nil {
		return fmt.Errorf("parse server URL: %w", err)
	}
	scheme := "ws"
	if base.Scheme == "https" {
		scheme = "wss"
	}
	wsURL := url.URL{Scheme: scheme, Host: base.Host, Path: "/ws", RawQuery: "session=" + url.QueryEscape(id)}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer conn.Close()

	fmt.Printf("Watching session %s (Ctrl-C to stop)\n", id)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var msg struct {
			Event    string           `json:"event"`
			Snapshot *engine.Snapshot `json:"snapshot,omitempty"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		if msg.Snapshot != nil {
			m := msg.Snapshot.Model
			fmt.Printf("[%d] (%d,%d) facing=%-5s movement=%-8s mode=%s\n",
				msg.Snapshot.Seq, m.Position.X, m.Position.Y,
				m.Facing, m.Movement.Kind, m.KeyMode)
		} else {
			fmt.Printf("event: %s\n", msg.Event)
		}
	}
}

func printSnapshot(snap *engine.Snapshot) {
	m := snap.Model
	movement := m.Movement.Kind.String()
	if m.Movement.Kind == engine.MoveStarting || m.Movement.Kind == engine.MoveRunning {
		movement += " " + m.Movement.Direction.String()
	}
	fmt.Printf("Position: (%d,%d)  Facing: %s  Movement: %s  Mode: %s\n",
		m.Position.X, m.Position.Y, m.Facing, movement, m.KeyMode)
}

func printEventResult(result *service.EventResult) {
	status := "accepted"
	if !result.Accepted {
		status = "dropped (robot in motion)"
	}
	fmt.Printf("Event %s: %s\n", result.Event, status)
	printSnapshot(&result.Snapshot)
}
