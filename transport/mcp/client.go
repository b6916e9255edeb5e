package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/maca/robotgrid/robot/engine"
	"github.com/maca/robotgrid/robot/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Robot Grid",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Robot Grid - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A robot sits on a square grid. Directional input either moves it (advance
mode) or turns it in place (rotate mode); toggle_mode switches between
the two. Once moving, the robot keeps stepping on its own: one step
immediately, then repeated steps after a short delay, until released or
interrupted. Position is clamped to the board edges.

AVAILABLE TOOLS:
- robot_state: Current position, facing, movement, and key mode
- press_control: Press a directional control (robot starts moving or turns)
- release_control: Release the control (robot stops)
- toggle_mode: Switch between advance and rotate key modes
- interrupt: Stop the robot immediately
- run_script: Replay a scripted input sequence with timed holds
- reset_robot: Restore the board's initial state
- event_log: View past transitions
- render_view: SVG rendering of the board
- create_session / get_session / list_sessions: Session management
- list_configs: List available board configurations
- usage_instructions: Full input model and script syntax reference

TIP: press_control only begins motion; use run_script with 'hold' to
move a precise distance, since repeated steps are paced by wall time.`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new robot session with optional board selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Board configuration to use (optional, defaults to the built-in board)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active robot sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to retrieve",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Robot state
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "robot_state",
		Description: "Get the robot's current position, facing, movement state, and key mode",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleRobotState)

	// Input
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "press_control",
		Description: "Press a directional control. In advance mode the robot faces that way and starts moving; in rotate mode up/down move forward/backward and left/right turn in place. The robot keeps moving until released or interrupted.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"up", "down", "left", "right"},
					"description": "Control to press",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handlePressControl)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "release_control",
		Description: "Release the pressed control, stopping the robot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleReleaseControl)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "toggle_mode",
		Description: "Toggle between advance and rotate key modes",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleToggleMode)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "interrupt",
		Description: "Stop the robot immediately",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleInterrupt)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_script",
		Description: "Replay a scripted input sequence. Commands: 'press <dir>', 'release', 'hold <dir> <ms>', 'toggle', 'wait <ms>'. Holds and waits pace out in real time so repeated movement behaves exactly like held keys.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"script": map[string]interface{}{
					"type":        "string",
					"description": "Script source, e.g. 'hold right 700 toggle press left release'",
				},
			},
			Required: []string{"session_id", "script"},
		},
	}, c.handleRunScript)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_robot",
		Description: "Reset the robot to the board's initial state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "event_log",
		Description: "Get the transition log for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleEventLog)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "render_view",
		Description: "Get an SVG rendering of the board with the robot on it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleRenderView)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available board configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "usage_instructions",
		Description: "Get the full input model and script syntax reference",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleUsageInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) apiCallRaw(path string) (string, error) {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("API error: %d", resp.StatusCode)
	}
	return string(data), nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	err := c.apiCall("POST", "/api/sessions", body, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nBoard: %s\n\n%s",
		session.ID, session.ConfigName, formatSnapshot(&session.Snapshot))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	err := c.apiCall("GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (Board: %s, Created: %s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var session service.SessionInfo
	err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s", sessionID), nil, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Session: %s\nBoard: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatSnapshot(&session.Snapshot))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleRobotState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var snap engine.Snapshot
	err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &snap)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handlePressControl(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	direction, _ := args["direction"].(string)

	body := map[string]string{"control": direction}

	var result service.EventResult
	err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/controls/press", sessionID), body, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatEventResult(&result)), nil
}

func (c *Client) handleReleaseControl(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var result service.EventResult
	err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/controls/release", sessionID), nil, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatEventResult(&result)), nil
}

func (c *Client) handleToggleMode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var result service.EventResult
	err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/toggle", sessionID), nil, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatEventResult(&result)), nil
}

func (c *Client) handleInterrupt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var result service.EventResult
	err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/interrupt", sessionID), nil, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatEventResult(&result)), nil
}

func (c *Client) handleRunScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	source, _ := args["script"].(string)

	body := map[string]string{"script": source}

	var result service.ScriptResult
	err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/script", sessionID), body, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := fmt.Sprintf("Script finished: %d steps, %d dropped, %dms\n\n%s",
		result.StepsExecuted, result.DroppedInputs, result.DurationMs,
		formatSnapshot(&result.Snapshot))
	return mcp.NewToolResultText(response), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var response struct {
		Message  string           `json:"message"`
		Snapshot *engine.Snapshot `json:"snapshot"`
	}

	err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/reset", sessionID), nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatSnapshot(response.Snapshot))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleEventLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	params := "?"
	if page, ok := args["page"].(float64); ok {
		params += fmt.Sprintf("page=%d&", int(page))
	}
	if limit, ok := args["limit"].(float64); ok {
		params += fmt.Sprintf("limit=%d&", int(limit))
	}

	var log service.LogResponse
	err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s/log%s", sessionID, params), nil, &log)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatEventLog(&log)), nil
}

func (c *Client) handleRenderView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	svg, err := c.apiCallRaw(fmt.Sprintf("/api/sessions/%s/view", sessionID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(svg), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	err := c.apiCall("GET", "/api/configs", nil, &configs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Boards:\n\n"
	for _, config := range configs {
		result += fmt.Sprintf("• %s (%s)\n  %s\n  Grid: %dx%d, Cell: %dpx\n\n",
			config.Name, config.ConfigID, config.Description, config.GridSize, config.GridSize, config.CellSize)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleUsageInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Robot Grid - Input Model Reference

THE ROBOT:
A robot sits on an NxN grid at a position with a facing (up, down, left,
right). It is always in one of four movement states: idle, rotating,
starting, or moving.

KEY MODES:
- advance (default): pressing a direction turns the robot to face that
  way and starts it moving forward.
- rotate: up moves forward, down moves backward, left/right turn the
  robot 90 degrees in place without moving it.
Use toggle_mode to switch. The mode persists until toggled again.

MOVEMENT TIMING:
Pressing a control takes one step almost immediately (on the next
animation tick). Holding it keeps the robot still for a repeat delay
(300ms on the default board), then it steps on every tick until
released. Position never leaves the board; steps past an edge clamp.

While the robot is in motion the keyboard listener is detached: raw
directional key presses are dropped until it stops. On-screen controls
and these MCP tools use the always-active control channel, so
press_control works mid-motion (it redirects the robot without
restarting the repeat timer).

SCRIPT SYNTAX (run_script):
  press <dir>      press a direction (up/down/left/right)
  release          release, stopping the robot
  hold <dir> <ms>  press, keep held for <ms> milliseconds, release
  toggle           toggle the key mode
  wait <ms>        do nothing for <ms> milliseconds

Example - move right for 700ms, then turn around in rotate mode:
  hold right 700
  toggle
  press left
  press left
  release

Scripts emulate keyboard input, so directional presses issued while the
robot is already moving are dropped (reported as dropped_inputs).

STATE DISPLAY:
The robot appears on the grid as an arrow showing its facing:
^ (up), v (down), < (left), > (right).`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func facingGlyph(o engine.Orientation) string {
	switch o {
	case engine.Up:
		return "^"
	case engine.Down:
		return "v"
	case engine.Left:
		return "<"
	case engine.Right:
		return ">"
	default:
		return "?"
	}
}

func formatSnapshot(snap *engine.Snapshot) string {
	if snap == nil {
		return "No state available"
	}

	var b strings.Builder

	m := snap.Model
	b.WriteString(fmt.Sprintf("Position: (%d,%d) | Facing: %s | Movement: %s",
		m.Position.X, m.Position.Y, m.Facing, m.Movement.Kind))
	if m.Movement.Kind == engine.MoveStarting || m.Movement.Kind == engine.MoveRunning {
		b.WriteString(fmt.Sprintf(" (%s)", m.Movement.Direction))
	}
	b.WriteString(fmt.Sprintf(" | Mode: %s\n", m.KeyMode))

	listening := "raw keys"
	if snap.Subscriptions.Ticks {
		listening = "animation ticks"
	}
	b.WriteString(fmt.Sprintf("Listening: %s\n\n", listening))

	// Grid with the robot drawn as a facing arrow
	for y := 0; y < snap.GridSize; y++ {
		for x := 0; x < snap.GridSize; x++ {
			if x == m.Position.X && y == m.Position.Y {
				b.WriteString(facingGlyph(m.Facing))
			} else {
				b.WriteString(".")
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

func formatEventResult(result *service.EventResult) string {
	status := "accepted"
	if !result.Accepted {
		status = "dropped (robot in motion, raw keys detached)"
	}
	return fmt.Sprintf("Event %s: %s\n\n%s", result.Event, status, formatSnapshot(&result.Snapshot))
}

func formatEventLog(log *service.LogResponse) string {
	result := fmt.Sprintf("Event Log (Page %d/%d) - Total: %d\n\n",
		log.Page, log.TotalPages, log.TotalEvents)

	for _, e := range log.Events {
		moved := ""
		if e.Moved {
			moved = fmt.Sprintf(" (%d,%d)->(%d,%d)", e.From.X, e.From.Y, e.To.X, e.To.Y)
		}
		result += fmt.Sprintf("%d. %s%s facing=%s movement=%s mode=%s\n",
			e.Seq, e.Event, moved, e.Facing, e.Movement, e.KeyMode)
	}

	return result
}
