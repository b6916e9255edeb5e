package engine

import "fmt"

// Orientation is the direction the robot faces on the grid. The constants
// are declared in rotation order so that turning is index arithmetic
// modulo 4: Left -> Up -> Right -> Down -> Left.
type Orientation int

const (
	Left Orientation = iota
	Up
	Right
	Down

	orientationCount = 4
)

// String returns the lowercase wire name of the orientation.
func (o Orientation) String() string {
	switch o {
	case Left:
		return "left"
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// ParseOrientation converts a wire name ("left", "up", "right", "down")
// into an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "left":
		return Left, nil
	case "up":
		return Up, nil
	case "right":
		return Right, nil
	case "down":
		return Down, nil
	default:
		return 0, fmt.Errorf("unknown orientation %q", s)
	}
}

// Rotate turns the orientation by the given number of steps through the
// cycle [Left, Up, Right, Down]. Negative steps turn counter-clockwise.
func (o Orientation) Rotate(steps int) Orientation {
	i := (int(o) + steps) % orientationCount
	if i < 0 {
		i += orientationCount
	}
	return Orientation(i)
}

// Delta returns the unit offset of one forward step while facing o.
// X grows to the right, Y grows downward.
func (o Orientation) Delta() (dx, dy int) {
	switch o {
	case Left:
		return -1, 0
	case Up:
		return 0, -1
	case Right:
		return 1, 0
	case Down:
		return 0, 1
	default:
		return 0, 0
	}
}

// MarshalText implements encoding.TextMarshaler so orientations appear as
// their wire names in JSON snapshots.
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Orientation) UnmarshalText(text []byte) error {
	parsed, err := ParseOrientation(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Direction is a movement sense relative to the current facing.
// Forward steps toward the facing, Backward away from it.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

// String returns the lowercase wire name of the direction.
func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "forward":
		*d = Forward
	case "backward":
		*d = Backward
	default:
		return fmt.Errorf("unknown direction %q", text)
	}
	return nil
}

// Position represents x,y coordinates on the grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Step returns the position one cell away along the facing axis, with the
// sign given by the direction, clamped to [0, gridSize-1] on both axes.
func (p Position) Step(facing Orientation, dir Direction, gridSize int) Position {
	dx, dy := facing.Delta()
	next := Position{
		X: clamp(p.X+dx*int(dir), gridSize),
		Y: clamp(p.Y+dy*int(dir), gridSize),
	}
	return next
}

func clamp(v, gridSize int) int {
	if v < 0 {
		return 0
	}
	if v > gridSize-1 {
		return gridSize - 1
	}
	return v
}

// MovementKind discriminates the Movement variant.
type MovementKind int

const (
	// MoveIdle means the robot is at rest.
	MoveIdle MovementKind = iota
	// MoveRotating means the last input turned the robot in place. It is a
	// terminal no-op state until the next discrete event clears it.
	MoveRotating
	// MoveStarting means movement was requested but the first step has not
	// been taken yet; the next tick takes it.
	MoveStarting
	// MoveRunning means the robot is stepping continuously, paced by the
	// repeat delay.
	MoveRunning
)

// String returns the lowercase wire name of the movement kind.
func (k MovementKind) String() string {
	switch k {
	case MoveIdle:
		return "idle"
	case MoveRotating:
		return "rotating"
	case MoveStarting:
		return "starting"
	case MoveRunning:
		return "moving"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k MovementKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *MovementKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*k = MoveIdle
	case "rotating":
		*k = MoveRotating
	case "starting":
		*k = MoveStarting
	case "moving":
		*k = MoveRunning
	default:
		return fmt.Errorf("unknown movement kind %q", text)
	}
	return nil
}

// Movement is the tagged movement variant. Direction is meaningful for
// MoveStarting and MoveRunning; StartedAt and LastTick only for
// MoveRunning.
type Movement struct {
	Kind      MovementKind `json:"kind"`
	Direction Direction    `json:"direction,omitempty"`
	StartedAt int64        `json:"started_at,omitempty"`
	LastTick  int64        `json:"last_tick,omitempty"`
}

// KeyMode selects whether directional input moves the robot directly or
// rotates it.
type KeyMode int

const (
	Advance KeyMode = iota
	Rotate
)

// String returns the lowercase wire name of the key mode.
func (m KeyMode) String() string {
	if m == Rotate {
		return "rotate"
	}
	return "advance"
}

// MarshalText implements encoding.TextMarshaler.
func (m KeyMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *KeyMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "advance":
		*m = Advance
	case "rotate":
		*m = Rotate
	default:
		return fmt.Errorf("unknown key mode %q", text)
	}
	return nil
}

// Toggle flips between Advance and Rotate.
func (m KeyMode) Toggle() KeyMode {
	if m == Advance {
		return Rotate
	}
	return Advance
}

// Model is the complete motion state of the robot. It is a value type:
// transitions produce a new Model and never mutate the receiver, so the
// owning runner is the only writer.
type Model struct {
	Position Position    `json:"position"`
	Facing   Orientation `json:"facing"`
	Movement Movement    `json:"movement"`
	KeyMode  KeyMode     `json:"key_mode"`
}

// Event is the closed set of inputs the state machine consumes.
type Event interface {
	// Name returns the wire name of the event for logging.
	Name() string
	isEvent()
}

// Input is a directional input, from an arrow key or an on-screen control.
type Input struct {
	Orientation Orientation
}

func (Input) isEvent() {}

// Name implements Event.
func (e Input) Name() string { return "input_" + e.Orientation.String() }

// Tick is a periodic animation-frame event carrying a millisecond
// timestamp, used to pace continuous movement.
type Tick struct {
	TimeMs int64
}

func (Tick) isEvent() {}

// Name implements Event.
func (Tick) Name() string { return "tick" }

// ToggleMode flips the key mode between Advance and Rotate.
type ToggleMode struct{}

func (ToggleMode) isEvent() {}

// Name implements Event.
func (ToggleMode) Name() string { return "toggle_mode" }

// Interrupt stops continuous movement immediately. It is the safe default
// for any unrecognized input.
type Interrupt struct{}

func (Interrupt) isEvent() {}

// Name implements Event.
func (Interrupt) Name() string { return "interrupt" }

// Subscriptions reports which event sources must be active for a given
// model state. The runtime queries this after every transition and
// (re)arms its sources accordingly: raw arrow key-down is only honored
// while idle, ticks only flow while the robot is not idle. Control events
// (toggle, interrupt) are always accepted.
type Subscriptions struct {
	RawKeys bool `json:"raw_keys"`
	Ticks   bool `json:"ticks"`
}
