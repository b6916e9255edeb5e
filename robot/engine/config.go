package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	// Validation constants
	MinGridSize = 2
	MaxGridSize = 64
	MinCellSize = 8
	MaxCellSize = 256

	// DefaultRepeatDelayMs is the hold time before continuous movement
	// begins repeating.
	DefaultRepeatDelayMs = 300
	// DefaultTickIntervalMs approximates a 30fps animation frame.
	DefaultTickIntervalMs = 33
	// DefaultGridSize matches the stock 8x8 board.
	DefaultGridSize = 8
	// DefaultCellSize is the renderer cell edge in pixels.
	DefaultCellSize = 64
)

// GridConfig describes a board the robot drives on: its dimensions, where
// the robot starts, and the timing of the animation loop.
type GridConfig struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	GridSize       int      `json:"grid_size"`
	CellSize       int      `json:"cell_size"`
	Start          Position `json:"start"`
	StartFacing    string   `json:"start_facing"`
	TickIntervalMs int      `json:"tick_interval_ms"`
	RepeatDelayMs  int64    `json:"repeat_delay_ms"`
}

// DefaultGridConfig returns the built-in board used when no config file is
// selected.
func DefaultGridConfig() *GridConfig {
	return &GridConfig{
		Name:           "Classic 8x8",
		Description:    "Stock board: 8x8 grid, robot starts top-left facing down",
		GridSize:       DefaultGridSize,
		CellSize:       DefaultCellSize,
		Start:          Position{X: 0, Y: 0},
		StartFacing:    Down.String(),
		TickIntervalMs: DefaultTickIntervalMs,
		RepeatDelayMs:  DefaultRepeatDelayMs,
	}
}

// ValidateGridConfig validates a grid configuration for correctness.
func ValidateGridConfig(config *GridConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("config validation: grid_size must be between %d and %d, got %d",
			MinGridSize, MaxGridSize, config.GridSize)
	}
	if config.CellSize != 0 && (config.CellSize < MinCellSize || config.CellSize > MaxCellSize) {
		return fmt.Errorf("config validation: cell_size must be between %d and %d, got %d",
			MinCellSize, MaxCellSize, config.CellSize)
	}
	if config.Start.X < 0 || config.Start.X >= config.GridSize ||
		config.Start.Y < 0 || config.Start.Y >= config.GridSize {
		return fmt.Errorf("config validation: start (%d,%d) is outside the %dx%d grid",
			config.Start.X, config.Start.Y, config.GridSize, config.GridSize)
	}
	if config.StartFacing != "" {
		if _, err := ParseOrientation(config.StartFacing); err != nil {
			return fmt.Errorf("config validation: start_facing: %v", err)
		}
	}
	if config.TickIntervalMs < 0 {
		return fmt.Errorf("config validation: tick_interval_ms must not be negative, got %d", config.TickIntervalMs)
	}
	if config.RepeatDelayMs < 0 {
		return fmt.Errorf("config validation: repeat_delay_ms must not be negative, got %d", config.RepeatDelayMs)
	}
	return nil
}

// LoadGridConfig loads and validates a grid configuration from a JSON
// file, filling defaults for omitted timing fields.
func LoadGridConfig(filename string) (*GridConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config GridConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filename, err)
	}

	applyConfigDefaults(&config)

	if err := ValidateGridConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyConfigDefaults(config *GridConfig) {
	if config.GridSize == 0 {
		config.GridSize = DefaultGridSize
	}
	if config.CellSize == 0 {
		config.CellSize = DefaultCellSize
	}
	if config.StartFacing == "" {
		config.StartFacing = Down.String()
	}
	if config.TickIntervalMs == 0 {
		config.TickIntervalMs = DefaultTickIntervalMs
	}
	if config.RepeatDelayMs == 0 {
		config.RepeatDelayMs = DefaultRepeatDelayMs
	}
}

// InitModelFromConfig creates the initial model for a board. A nil config
// falls back to the defaults.
func InitModelFromConfig(config *GridConfig) Model {
	if config == nil {
		config = DefaultGridConfig()
	}

	facing := Down
	if config.StartFacing != "" {
		if parsed, err := ParseOrientation(config.StartFacing); err == nil {
			facing = parsed
		}
	}

	return Model{
		Position: Position{
			X: clamp(config.Start.X, config.GridSize),
			Y: clamp(config.Start.Y, config.GridSize),
		},
		Facing:   facing,
		Movement: Movement{Kind: MoveIdle},
		KeyMode:  Advance,
	}
}
