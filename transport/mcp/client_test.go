package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/maca/robotgrid/robot/engine"
	"github.com/maca/robotgrid/robot/service"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	if client == nil {
		t.Fatal("Expected client to be created")
	}
	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.mcpServer == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	expectedResponse := map[string]interface{}{
		"id":    "test-session",
		"event": "input_up",
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(expectedResponse)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	err := client.apiCall("GET", "/api", nil, &response)
	if err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}

	if response["id"] != expectedResponse["id"] {
		t.Errorf("Expected id %v, got %v", expectedResponse["id"], response["id"])
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	err := client.apiCall("GET", "/api", nil, nil)
	if err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall("GET", "/api", nil, nil)
	if err == nil {
		t.Error("Expected error for HTTP 500 response")
	}
	if !strings.Contains(err.Error(), "API error") {
		t.Errorf("Expected 'API error' in error message, got: %v", err)
	}
}

func TestClient_createSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}

		resp := service.SessionInfo{
			ID:         "test-session-123",
			ConfigName: "default",
		}
		resp.Snapshot.GridSize = 5
		resp.Snapshot.CellSize = 32
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "create_session",
			Arguments: map[string]interface{}{},
		},
	}

	result, err := client.handleCreateSession(ctx, request)
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}
	if result == nil {
		t.Fatal("Expected result, got nil")
	}

	resultStr, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	if !strings.Contains(resultStr.Text, "test-session-123") {
		t.Errorf("Expected session ID in result, got: %s", resultStr.Text)
	}
}

func TestClient_pressControl(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions/abc/controls/press" {
			t.Errorf("Expected POST /api/sessions/abc/controls/press, got %s %s", r.Method, r.URL.Path)
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["control"] != "right" {
			t.Errorf("Expected control 'right', got %q", body["control"])
		}

		result := service.EventResult{Accepted: true, Event: "input_right"}
		result.Snapshot.GridSize = 5
		result.Snapshot.Model.Facing = engine.Right
		result.Snapshot.Model.Movement.Kind = engine.MoveStarting
		result.Snapshot.Model.Movement.Direction = engine.Forward
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "press_control",
			Arguments: map[string]interface{}{
				"session_id": "abc",
				"direction":  "right",
			},
		},
	}

	result, err := client.handlePressControl(context.Background(), request)
	if err != nil {
		t.Fatalf("handlePressControl failed: %v", err)
	}

	resultStr, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	if !strings.Contains(resultStr.Text, "input_right") {
		t.Errorf("Expected event name in result, got: %s", resultStr.Text)
	}
	if !strings.Contains(resultStr.Text, "accepted") {
		t.Errorf("Expected acceptance status in result, got: %s", resultStr.Text)
	}
}

func TestFormatSnapshot(t *testing.T) {
	snap := &engine.Snapshot{GridSize: 4, CellSize: 32}
	snap.Model.Position = engine.Position{X: 1, Y: 2}
	snap.Model.Facing = engine.Right
	snap.Model.Movement.Kind = engine.MoveRunning
	snap.Model.Movement.Direction = engine.Forward
	snap.Subscriptions.Ticks = true

	result := formatSnapshot(snap)

	expectedFields := []string{
		"Position: (1,2)",
		"Facing: right",
		"Movement: moving (forward)",
		"Mode: advance",
		"Listening: animation ticks",
	}
	for _, field := range expectedFields {
		if !strings.Contains(result, field) {
			t.Errorf("Expected field '%s' in formatted output, got: %s", field, result)
		}
	}

	// The robot renders as an arrow at its grid position.
	lines := strings.Split(result, "\n")
	gridLines := lines[len(lines)-5:] // 4 rows plus trailing empty line
	if gridLines[2] != ".>.." {
		t.Errorf("Expected robot glyph '>' at (1,2), got row %q", gridLines[2])
	}
}

func TestFormatSnapshot_FacingGlyphs(t *testing.T) {
	tests := []struct {
		facing engine.Orientation
		glyph  string
	}{
		{engine.Up, "^"},
		{engine.Down, "v"},
		{engine.Left, "<"},
		{engine.Right, ">"},
	}

	for _, tt := range tests {
		snap := &engine.Snapshot{GridSize: 2}
		snap.Model.Facing = tt.facing

		result := formatSnapshot(snap)
		if !strings.Contains(result, tt.glyph) {
			t.Errorf("Expected glyph %q for facing %s, got: %s", tt.glyph, tt.facing, result)
		}
	}
}

func TestFormatEventResult_Dropped(t *testing.T) {
	result := &service.EventResult{
		Accepted: false,
		Event:    "input_up",
	}
	result.Snapshot.GridSize = 2

	formatted := formatEventResult(result)
	if !strings.Contains(formatted, "dropped") {
		t.Errorf("Expected 'dropped' in result, got: %s", formatted)
	}
}

func TestClient_handleUsageInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")
	ctx := context.Background()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "usage_instructions",
			Arguments: map[string]interface{}{},
		},
	}

	result, err := client.handleUsageInstructions(ctx, request)
	if err != nil {
		t.Fatalf("handleUsageInstructions failed: %v", err)
	}
	if result == nil {
		t.Fatal("Expected result, got nil")
	}

	resultStr, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}

	expectedContent := []string{
		"KEY MODES:",
		"MOVEMENT TIMING:",
		"SCRIPT SYNTAX",
		"hold <dir> <ms>",
		"toggle",
	}
	for _, content := range expectedContent {
		if !strings.Contains(resultStr.Text, content) {
			t.Errorf("Expected '%s' in instructions, got: %s", content, resultStr.Text)
		}
	}
}

func TestClient_Integration(t *testing.T) {
	client := NewClient("http://localhost:8080")

	if client == nil {
		t.Fatal("Failed to create client")
	}
	if client.mcpServer == nil {
		t.Fatal("MCP server not initialized")
	}
	if client.baseURL == "" {
		t.Error("Base URL not set")
	}
	if client.httpClient == nil {
		t.Error("HTTP client not initialized")
	}
}
