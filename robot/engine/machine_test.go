package engine

import (
	"math/rand"
	"testing"
)

func testConfig() *GridConfig {
	return &GridConfig{
		Name:           "Machine Test Board",
		Description:    "Board used by state machine tests",
		GridSize:       5,
		CellSize:       32,
		Start:          Position{X: 0, Y: 0},
		StartFacing:    "down",
		TickIntervalMs: 10,
		RepeatDelayMs:  300,
	}
}

func TestNewModel(t *testing.T) {
	m := NewModel()

	if m.Position != (Position{X: 0, Y: 0}) {
		t.Errorf("Expected initial position (0,0), got (%d,%d)", m.Position.X, m.Position.Y)
	}
	if m.Facing != Down {
		t.Errorf("Expected initial facing down, got %s", m.Facing)
	}
	if m.Movement.Kind != MoveIdle {
		t.Errorf("Expected initial movement idle, got %s", m.Movement.Kind)
	}
	if m.KeyMode != Advance {
		t.Errorf("Expected initial key mode advance, got %s", m.KeyMode)
	}
}

func TestInput_AdvanceModeSetsFacing(t *testing.T) {
	cfg := testConfig()

	// Facing must follow the input regardless of the prior movement state.
	priors := []Movement{
		{Kind: MoveIdle},
		{Kind: MoveRotating},
		{Kind: MoveStarting, Direction: Backward},
		{Kind: MoveRunning, Direction: Forward, StartedAt: 100, LastTick: 150},
	}

	for _, o := range []Orientation{Left, Up, Right, Down} {
		for _, prior := range priors {
			m := NewModel()
			m.Movement = prior

			next := m.Apply(Input{Orientation: o}, cfg)
			if next.Facing != o {
				t.Errorf("Input(%s) from movement %s: expected facing %s, got %s",
					o, prior.Kind, o, next.Facing)
			}
			if next.Movement.Kind != MoveStarting && next.Movement.Kind != MoveRunning {
				t.Errorf("Input(%s) from movement %s: expected movement starting or moving, got %s",
					o, prior.Kind, next.Movement.Kind)
			}
			if next.Movement.Direction != Forward {
				t.Errorf("Input(%s): advance mode must request forward movement, got %s",
					o, next.Movement.Direction)
			}
		}
	}
}

func TestInput_RotateModeUpStartsForward(t *testing.T) {
	cfg := testConfig()
	m := NewModel()
	m.KeyMode = Rotate
	m.Facing = Right

	next := m.Apply(Input{Orientation: Up}, cfg)

	if next.Movement.Kind != MoveStarting {
		t.Errorf("Expected movement starting, got %s", next.Movement.Kind)
	}
	if next.Movement.Direction != Forward {
		t.Errorf("Expected forward direction, got %s", next.Movement.Direction)
	}
	if next.Facing != Right {
		t.Errorf("Rotate-mode Up must not change facing, was right now %s", next.Facing)
	}
	if next.Position != m.Position {
		t.Error("Rotate-mode Up must not move the robot")
	}
}

func TestInput_RotateModeDownStartsBackward(t *testing.T) {
	cfg := testConfig()
	m := NewModel()
	m.KeyMode = Rotate

	next := m.Apply(Input{Orientation: Down}, cfg)

	if next.Movement.Kind != MoveStarting || next.Movement.Direction != Backward {
		t.Errorf("Expected starting/backward, got %s/%s", next.Movement.Kind, next.Movement.Direction)
	}
}

func TestInput_RotateModeTurns(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name   string
		facing Orientation
		input  Orientation
		want   Orientation
	}{
		{"left turns counter-clockwise", Down, Left, Right},
		{"left wraps from left", Left, Left, Down},
		{"right turns clockwise", Right, Right, Down},
		{"right wraps from down", Down, Right, Left},
		{"right from left", Left, Right, Up},
		{"left from up", Up, Left, Left},
		{"right from up", Up, Right, Right},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel()
			m.KeyMode = Rotate
			m.Facing = tt.facing

			next := m.Apply(Input{Orientation: tt.input}, cfg)

			if next.Facing != tt.want {
				t.Errorf("facing %s + Input(%s): expected facing %s, got %s",
					tt.facing, tt.input, tt.want, next.Facing)
			}
			if next.Movement.Kind != MoveRotating {
				t.Errorf("Expected movement rotating, got %s", next.Movement.Kind)
			}
			if next.Position != m.Position {
				t.Error("Rotation must not move the robot")
			}
		})
	}
}

func TestRotationCycle(t *testing.T) {
	// Four steps in either direction return to the start.
	for _, start := range []Orientation{Left, Up, Right, Down} {
		if got := start.Rotate(1).Rotate(1).Rotate(1).Rotate(1); got != start {
			t.Errorf("Four clockwise turns from %s: got %s", start, got)
		}
		if got := start.Rotate(-1).Rotate(-1).Rotate(-1).Rotate(-1); got != start {
			t.Errorf("Four counter-clockwise turns from %s: got %s", start, got)
		}
	}
}

func TestTick_IdleAndRotatingAreNoOps(t *testing.T) {
	cfg := testConfig()

	for _, kind := range []MovementKind{MoveIdle, MoveRotating} {
		m := NewModel()
		m.Position = Position{X: 2, Y: 2}
		m.Movement = Movement{Kind: kind}

		next := m.Apply(Tick{TimeMs: 1000}, cfg)

		if next != m {
			t.Errorf("Tick on %s movement must not change the model", kind)
		}
	}
}

func TestTick_StartingStepsAndStartsTimer(t *testing.T) {
	cfg := testConfig()
	m := NewModel()
	m.Position = Position{X: 1, Y: 1}
	m.Facing = Right
	m.Movement = Movement{Kind: MoveStarting, Direction: Forward}

	next := m.Apply(Tick{TimeMs: 500}, cfg)

	if next.Position.X != 2 || next.Position.Y != 1 {
		t.Errorf("Expected position (2,1), got (%d,%d)", next.Position.X, next.Position.Y)
	}
	if next.Movement.Kind != MoveRunning {
		t.Errorf("Expected movement moving, got %s", next.Movement.Kind)
	}
	if next.Movement.StartedAt != 500 || next.Movement.LastTick != 500 {
		t.Errorf("Expected timer (500,500), got (%d,%d)",
			next.Movement.StartedAt, next.Movement.LastTick)
	}
}

func TestTick_RepeatDelayGating(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name     string
		tickAt   int64
		wantMove bool
	}{
		{"before threshold", 1200, false},
		{"exactly at threshold", 1300, false},
		{"past threshold", 1301, true},
		{"well past threshold", 2000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel()
			m.Position = Position{X: 1, Y: 1}
			m.Facing = Right
			m.Movement = Movement{Kind: MoveRunning, Direction: Forward, StartedAt: 1000, LastTick: 1000}

			next := m.Apply(Tick{TimeMs: tt.tickAt}, cfg)

			wantX := 1
			if tt.wantMove {
				wantX = 2
			}
			if next.Position.X != wantX {
				t.Errorf("Tick at %d: expected x=%d, got %d", tt.tickAt, wantX, next.Position.X)
			}
			if next.Movement.StartedAt != 1000 {
				t.Errorf("Repeat start must be preserved, got %d", next.Movement.StartedAt)
			}
			if next.Movement.LastTick != tt.tickAt {
				t.Errorf("Expected last tick %d, got %d", tt.tickAt, next.Movement.LastTick)
			}
		})
	}
}

func TestTick_RepeatsEveryTickOncePastThreshold(t *testing.T) {
	// The start time is never refreshed, so after the initial delay each
	// qualifying tick steps again at the tick rate.
	cfg := testConfig()
	m := NewModel()
	m.Facing = Right
	m.Movement = Movement{Kind: MoveRunning, Direction: Forward, StartedAt: 0, LastTick: 0}

	m = m.Apply(Tick{TimeMs: 310}, cfg)
	m = m.Apply(Tick{TimeMs: 320}, cfg)
	m = m.Apply(Tick{TimeMs: 330}, cfg)

	if m.Position.X != 3 {
		t.Errorf("Expected three repeat steps, got x=%d", m.Position.X)
	}
}

func TestInterrupt_StopsFromAnyMovement(t *testing.T) {
	cfg := testConfig()

	movements := []Movement{
		{Kind: MoveIdle},
		{Kind: MoveRotating},
		{Kind: MoveStarting, Direction: Forward},
		{Kind: MoveRunning, Direction: Backward, StartedAt: 10, LastTick: 20},
	}

	for _, mv := range movements {
		m := NewModel()
		m.Position = Position{X: 3, Y: 2}
		m.Facing = Up
		m.Movement = mv

		next := m.Apply(Interrupt{}, cfg)

		if next.Movement.Kind != MoveIdle {
			t.Errorf("Interrupt from %s: expected idle, got %s", mv.Kind, next.Movement.Kind)
		}
		if next.Position != m.Position {
			t.Errorf("Interrupt from %s must not move the robot", mv.Kind)
		}
		if next.Facing != m.Facing {
			t.Errorf("Interrupt from %s must not change facing", mv.Kind)
		}
	}
}

func TestToggleMode_Involution(t *testing.T) {
	cfg := testConfig()
	m := NewModel()
	m.Position = Position{X: 2, Y: 4}
	m.Facing = Left
	m.Movement = Movement{Kind: MoveRunning, Direction: Forward, StartedAt: 5, LastTick: 9}

	once := m.Apply(ToggleMode{}, cfg)
	if once.KeyMode != Rotate {
		t.Errorf("Expected rotate after one toggle, got %s", once.KeyMode)
	}
	if once.Movement != m.Movement || once.Position != m.Position || once.Facing != m.Facing {
		t.Error("ToggleMode must leave everything but key mode unchanged")
	}

	twice := once.Apply(ToggleMode{}, cfg)
	if twice != m {
		t.Error("Two toggles must return the model to its original value")
	}
}

func TestStartOrContinue_RunningKeepsTimer(t *testing.T) {
	cfg := testConfig()
	m := NewModel()
	m.KeyMode = Rotate
	m.Facing = Right
	m.Movement = Movement{Kind: MoveRunning, Direction: Forward, StartedAt: 100, LastTick: 400}

	// Reversing while already moving keeps the established timer so the
	// new direction does not wait out another initial delay.
	next := m.Apply(Input{Orientation: Down}, cfg)

	if next.Movement.Kind != MoveRunning {
		t.Errorf("Expected movement to stay moving, got %s", next.Movement.Kind)
	}
	if next.Movement.Direction != Backward {
		t.Errorf("Expected direction backward, got %s", next.Movement.Direction)
	}
	if next.Movement.StartedAt != 100 || next.Movement.LastTick != 400 {
		t.Errorf("Expected timer (100,400) preserved, got (%d,%d)",
			next.Movement.StartedAt, next.Movement.LastTick)
	}
}

func TestStartOrContinue_RestartsFromNonRunning(t *testing.T) {
	cfg := testConfig()

	for _, prior := range []Movement{
		{Kind: MoveIdle},
		{Kind: MoveRotating},
		{Kind: MoveStarting, Direction: Backward},
	} {
		m := NewModel()
		m.Movement = prior

		next := m.Apply(Input{Orientation: Up}, cfg)

		if next.Movement.Kind != MoveStarting {
			t.Errorf("From %s: expected starting, got %s", prior.Kind, next.Movement.Kind)
		}
		if next.Movement.StartedAt != 0 || next.Movement.LastTick != 0 {
			t.Errorf("From %s: restart must clear the timer", prior.Kind)
		}
	}
}

func TestStep_ForwardSigns(t *testing.T) {
	tests := []struct {
		facing Orientation
		dir    Direction
		from   Position
		want   Position
	}{
		{Right, Forward, Position{1, 1}, Position{2, 1}},
		{Right, Backward, Position{1, 1}, Position{0, 1}},
		{Left, Forward, Position{1, 1}, Position{0, 1}},
		{Left, Backward, Position{1, 1}, Position{2, 1}},
		{Down, Forward, Position{1, 1}, Position{1, 2}},
		{Down, Backward, Position{1, 1}, Position{1, 0}},
		{Up, Forward, Position{1, 1}, Position{1, 0}},
		{Up, Backward, Position{1, 1}, Position{1, 2}},
	}

	for _, tt := range tests {
		got := tt.from.Step(tt.facing, tt.dir, 5)
		if got != tt.want {
			t.Errorf("Step(%s, %s) from (%d,%d): expected (%d,%d), got (%d,%d)",
				tt.facing, tt.dir, tt.from.X, tt.from.Y, tt.want.X, tt.want.Y, got.X, got.Y)
		}
	}
}

func TestStep_ClampsAtEdges(t *testing.T) {
	if got := (Position{0, 0}).Step(Left, Forward, 5); got != (Position{0, 0}) {
		t.Errorf("Expected clamp at left edge, got (%d,%d)", got.X, got.Y)
	}
	if got := (Position{4, 4}).Step(Down, Forward, 5); got != (Position{4, 4}) {
		t.Errorf("Expected clamp at bottom edge, got (%d,%d)", got.X, got.Y)
	}
	if got := (Position{4, 0}).Step(Up, Forward, 5); got != (Position{4, 0}) {
		t.Errorf("Expected clamp at top edge, got (%d,%d)", got.X, got.Y)
	}
	if got := (Position{4, 4}).Step(Up, Backward, 5); got != (Position{4, 4}) {
		t.Errorf("Expected clamp at bottom with backward-up, got (%d,%d)", got.X, got.Y)
	}
}

func TestBoundsInvariantUnderRandomEvents(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(7))
	m := NewModel()

	var now int64
	for i := 0; i < 5000; i++ {
		var ev Event
		switch rng.Intn(4) {
		case 0:
			ev = Input{Orientation: Orientation(rng.Intn(4))}
		case 1:
			now += int64(rng.Intn(120))
			ev = Tick{TimeMs: now}
		case 2:
			ev = ToggleMode{}
		default:
			ev = Interrupt{}
		}

		m = m.Apply(ev, cfg)

		if m.Position.X < 0 || m.Position.X >= cfg.GridSize ||
			m.Position.Y < 0 || m.Position.Y >= cfg.GridSize {
			t.Fatalf("Position (%d,%d) escaped the grid after event %d (%s)",
				m.Position.X, m.Position.Y, i, ev.Name())
		}
	}
}

func TestSubscriptions(t *testing.T) {
	tests := []struct {
		kind        MovementKind
		wantRawKeys bool
		wantTicks   bool
	}{
		{MoveIdle, true, false},
		{MoveRotating, false, true},
		{MoveStarting, false, true},
		{MoveRunning, false, true},
	}

	for _, tt := range tests {
		m := NewModel()
		m.Movement = Movement{Kind: tt.kind}

		subs := m.Subscriptions()
		if subs.RawKeys != tt.wantRawKeys {
			t.Errorf("%s: expected raw_keys=%v, got %v", tt.kind, tt.wantRawKeys, subs.RawKeys)
		}
		if subs.Ticks != tt.wantTicks {
			t.Errorf("%s: expected ticks=%v, got %v", tt.kind, tt.wantTicks, subs.Ticks)
		}
	}
}
