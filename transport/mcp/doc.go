// Package mcp provides a Model Context Protocol surface for robot
// sessions.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions for robot input and state inspection
//   - Session-aware command execution
//   - Stdio transport via mark3labs/mcp-go
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - robot_state: Position, facing, movement state, and key mode with an
//     ASCII grid rendering
//   - press_control / release_control: Directional control input
//   - toggle_mode: Switch between advance and rotate key modes
//   - interrupt: Stop the robot immediately
//   - run_script: Replay scripted input with timed holds
//   - reset_robot: Restore the board's initial state
//   - event_log: Paginated transition history
//   - render_view: SVG rendering of the board
//   - create_session / get_session / list_sessions: Session management
//   - list_configs: List available board configurations
//   - usage_instructions: Input model and script syntax reference
//
// Architecture:
//
// The MCP server is a thin client: every tool call proxies to the REST
// API over HTTP, so the MCP process can run separately from the robot
// server. Tool input goes through the always-active control channel,
// meaning directional presses work even while the robot is in motion
// (unlike raw keyboard input, which is dropped mid-motion).
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
