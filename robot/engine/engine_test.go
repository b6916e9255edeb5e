package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewRobot(t *testing.T) {
	robot, err := NewRobot(testConfig())
	if err != nil {
		t.Fatalf("Failed to create robot: %v", err)
	}

	m := robot.Model()
	if m.Position != (Position{X: 0, Y: 0}) {
		t.Errorf("Expected start at (0,0), got (%d,%d)", m.Position.X, m.Position.Y)
	}
	if m.Facing != Down {
		t.Errorf("Expected facing down, got %s", m.Facing)
	}
	if len(robot.EventLog()) != 0 {
		t.Errorf("Expected empty event log, got %d entries", len(robot.EventLog()))
	}
}

func TestNewRobot_NilConfigUsesDefaults(t *testing.T) {
	robot, err := NewRobot(nil)
	if err != nil {
		t.Fatalf("Failed to create robot with defaults: %v", err)
	}
	if robot.Config().GridSize != DefaultGridSize {
		t.Errorf("Expected default grid size %d, got %d", DefaultGridSize, robot.Config().GridSize)
	}
	if robot.Config().RepeatDelayMs != DefaultRepeatDelayMs {
		t.Errorf("Expected default repeat delay %d, got %d", DefaultRepeatDelayMs, robot.Config().RepeatDelayMs)
	}
}

func TestNewRobot_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Start = Position{X: 99, Y: 0}

	if _, err := NewRobot(cfg); err == nil {
		t.Error("Expected error for out-of-grid start position")
	}
}

func TestRobot_DispatchRecordsTransitions(t *testing.T) {
	robot, err := NewRobot(testConfig())
	if err != nil {
		t.Fatalf("Failed to create robot: %v", err)
	}

	robot.Dispatch(Input{Orientation: Right})
	robot.Dispatch(Tick{TimeMs: 100})

	log := robot.EventLog()
	if len(log) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(log))
	}
	if log[0].Event != "input_right" {
		t.Errorf("Expected first event input_right, got %s", log[0].Event)
	}
	if log[1].Event != "tick" || !log[1].Moved {
		t.Errorf("Expected moving tick record, got %s moved=%v", log[1].Event, log[1].Moved)
	}
	if log[1].To != (Position{X: 1, Y: 0}) {
		t.Errorf("Expected tick to move to (1,0), got (%d,%d)", log[1].To.X, log[1].To.Y)
	}
	if log[1].Seq != 2 {
		t.Errorf("Expected second record with seq 2, got %d", log[1].Seq)
	}
}

func TestRobot_NoOpTicksAreNotLogged(t *testing.T) {
	robot, err := NewRobot(testConfig())
	if err != nil {
		t.Fatalf("Failed to create robot: %v", err)
	}

	robot.Dispatch(Input{Orientation: Right})
	robot.Dispatch(Tick{TimeMs: 100}) // first step
	robot.Dispatch(Tick{TimeMs: 150}) // inside repeat delay, no move
	robot.Dispatch(Tick{TimeMs: 200}) // still inside

	if got := len(robot.EventLog()); got != 2 {
		t.Errorf("Expected 2 log entries (input + moving tick), got %d", got)
	}
}

func TestRobot_Reset(t *testing.T) {
	robot, err := NewRobot(testConfig())
	if err != nil {
		t.Fatalf("Failed to create robot: %v", err)
	}

	robot.Dispatch(Input{Orientation: Right})
	robot.Dispatch(Tick{TimeMs: 50})
	logLen := len(robot.EventLog())

	m := robot.Reset()
	if m.Position != (Position{X: 0, Y: 0}) || m.Movement.Kind != MoveIdle {
		t.Error("Expected reset to restore the initial model")
	}
	if len(robot.EventLog()) != logLen+1 {
		t.Error("Expected reset to be recorded without clearing the log")
	}
}

func TestRobot_Snapshot(t *testing.T) {
	robot, err := NewRobot(testConfig())
	if err != nil {
		t.Fatalf("Failed to create robot: %v", err)
	}

	snap := robot.Snapshot()
	if snap.GridSize != 5 || snap.CellSize != 32 {
		t.Errorf("Expected 5/32 board dims, got %d/%d", snap.GridSize, snap.CellSize)
	}
	if !snap.Subscriptions.RawKeys || snap.Subscriptions.Ticks {
		t.Error("Idle snapshot must subscribe raw keys only")
	}

	robot.Dispatch(Input{Orientation: Up})
	snap = robot.Snapshot()
	if snap.Subscriptions.RawKeys || !snap.Subscriptions.Ticks {
		t.Error("Moving snapshot must subscribe ticks only")
	}
}

func TestRobot_EventLogBounded(t *testing.T) {
	robot, err := NewRobot(testConfig())
	if err != nil {
		t.Fatalf("Failed to create robot: %v", err)
	}

	// Input events always log, so overflowing the cap must drop the oldest
	// records and keep only the newest.
	total := maxEventLog + 500
	for i := 0; i < total; i++ {
		robot.Dispatch(Input{Orientation: Orientation(i % 4)})
	}

	log := robot.EventLog()
	if len(log) != maxEventLog {
		t.Fatalf("Expected log capped at %d entries, got %d", maxEventLog, len(log))
	}
	if log[0].Seq != total-maxEventLog+1 {
		t.Errorf("Expected oldest surviving seq %d, got %d", total-maxEventLog+1, log[0].Seq)
	}
	if log[len(log)-1].Seq != total {
		t.Errorf("Expected newest seq %d, got %d", total, log[len(log)-1].Seq)
	}

	robot.Reset()
	if got := len(robot.EventLog()); got != maxEventLog {
		t.Errorf("Expected reset record to stay within the cap, got %d entries", got)
	}
}

func TestValidateGridConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GridConfig)
		wantErr bool
	}{
		{"valid", func(c *GridConfig) {}, false},
		{"missing name", func(c *GridConfig) { c.Name = "" }, true},
		{"grid too small", func(c *GridConfig) { c.GridSize = 1 }, true},
		{"grid too large", func(c *GridConfig) { c.GridSize = 100 }, true},
		{"start outside grid", func(c *GridConfig) { c.Start.Y = 5 }, true},
		{"bad facing", func(c *GridConfig) { c.StartFacing = "north" }, true},
		{"negative repeat delay", func(c *GridConfig) { c.RepeatDelayMs = -1 }, true},
		{"tiny cell size", func(c *GridConfig) { c.CellSize = 2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			err := ValidateGridConfig(cfg)
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected valid config, got %v", err)
			}
		})
	}
}

func TestLoadGridConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.json")
	data := `{
		"name": "Loaded Board",
		"description": "Board loaded from disk",
		"grid_size": 6,
		"start": {"x": 2, "y": 3},
		"start_facing": "right"
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadGridConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GridSize != 6 {
		t.Errorf("Expected grid size 6, got %d", cfg.GridSize)
	}
	// Omitted timing fields fall back to defaults.
	if cfg.RepeatDelayMs != DefaultRepeatDelayMs {
		t.Errorf("Expected default repeat delay, got %d", cfg.RepeatDelayMs)
	}
	if cfg.TickIntervalMs != DefaultTickIntervalMs {
		t.Errorf("Expected default tick interval, got %d", cfg.TickIntervalMs)
	}
	if cfg.CellSize != DefaultCellSize {
		t.Errorf("Expected default cell size, got %d", cfg.CellSize)
	}

	m := InitModelFromConfig(cfg)
	if m.Position != (Position{X: 2, Y: 3}) || m.Facing != Right {
		t.Errorf("Expected model at (2,3) facing right, got (%d,%d) %s",
			m.Position.X, m.Position.Y, m.Facing)
	}
}

func TestLoadGridConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"name": "Bad", "grid_size": 1}`), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadGridConfig(path); err == nil {
		t.Error("Expected validation error for undersized grid")
	}

	if _, err := LoadGridConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}
