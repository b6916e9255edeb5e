// Package service defines the robot motion service: session lifecycle,
// translation of raw key and pointer input into state machine events, and
// read access to models and event logs. Transports (REST, WebSocket, MCP)
// call into this package and stay free of motion logic.
package service
