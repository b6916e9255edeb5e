package service

import (
	"context"
	"time"

	"github.com/maca/robotgrid/robot/engine"
)

// MotionService defines all robot-session operations.
type MotionService interface {
	// Session management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Input: keyboard and pointer events from an input source
	KeyDown(ctx context.Context, sessionID, key string) (*EventResult, error)
	KeyUp(ctx context.Context, sessionID, key string) (*EventResult, error)
	ControlDown(ctx context.Context, sessionID, control string) (*EventResult, error)
	ControlUp(ctx context.Context, sessionID string) (*EventResult, error)
	ToggleMode(ctx context.Context, sessionID string) (*EventResult, error)
	Interrupt(ctx context.Context, sessionID string) (*EventResult, error)

	// Scripted input
	RunScript(ctx context.Context, sessionID, source string) (*ScriptResult, error)

	// State
	GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetEventLog(ctx context.Context, sessionID string, opts LogOptions) (*LogResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
}

// SessionRunner drives one robot: it owns the model, serializes events,
// and generates animation ticks while the machine subscribes to them.
type SessionRunner interface {
	// Submit applies an event from an always-active source (pointer
	// controls, toggle, interrupt) and returns the resulting snapshot.
	Submit(ctx context.Context, ev engine.Event) (engine.Snapshot, error)
	// SubmitRaw applies an event from the raw keyboard listener.
	// Directional inputs are dropped while the machine is not
	// subscribed to raw keys; control events always pass. The bool
	// reports whether the event reached the machine.
	SubmitRaw(ctx context.Context, ev engine.Event) (engine.Snapshot, bool, error)
	// Snapshot reads the current state without applying an event.
	Snapshot(ctx context.Context) (engine.Snapshot, error)
	// Reset restores the board's initial model.
	Reset(ctx context.Context) (engine.Snapshot, error)
	// EventLog reads the recorded transitions.
	EventLog(ctx context.Context) ([]engine.EventRecord, error)
	// Stop shuts the runner down; pending submissions fail.
	Stop()
}

// SessionManager defines session storage operations.
type SessionManager interface {
	Create(id string, config *engine.GridConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles board configuration loading.
type ConfigManager interface {
	LoadConfig(name string) (*engine.GridConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GridConfig
}

// Session is one live robot with its runner.
type Session struct {
	ID             string
	Runner         SessionRunner
	Config         *engine.GridConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
