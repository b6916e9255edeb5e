package service

import (
	"time"

	"github.com/maca/robotgrid/robot/engine"
)

// SessionInfo provides information about a robot session.
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Snapshot       engine.Snapshot    `json:"snapshot"`
	GridConfig     *engine.GridConfig `json:"grid_config"`
}

// EventResult is the outcome of one submitted input event.
type EventResult struct {
	// Accepted is false when a raw directional key arrived while the
	// machine was not listening for raw keys and was dropped.
	Accepted bool            `json:"accepted"`
	Event    string          `json:"event"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

// ScriptResult is the outcome of a replayed input script.
type ScriptResult struct {
	StepsExecuted int             `json:"steps_executed"`
	DroppedInputs int             `json:"dropped_inputs"`
	DurationMs    int64           `json:"duration_ms"`
	Snapshot      engine.Snapshot `json:"snapshot"`
}

// LogOptions configures event log retrieval.
type LogOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// LogResponse contains a paginated event log.
type LogResponse struct {
	Events      []engine.EventRecord `json:"events"`
	TotalEvents int                  `json:"total_events"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"page_size"`
	TotalPages  int                  `json:"total_pages"`
	HasNext     bool                 `json:"has_next"`
	HasPrevious bool                 `json:"has_previous"`
}

// ConfigInfo provides information about a board configuration.
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	GridSize    int    `json:"grid_size"`
	CellSize    int    `json:"cell_size"`
}
