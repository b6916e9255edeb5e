package engine

// NewModel returns the initial model: origin, facing down, idle, advance
// key mode.
func NewModel() Model {
	return Model{
		Position: Position{X: 0, Y: 0},
		Facing:   Down,
		Movement: Movement{Kind: MoveIdle},
		KeyMode:  Advance,
	}
}

// Apply advances the model by one event and returns the resulting model.
// It is a pure function of (event, prior state); the grid config supplies
// the clamping bounds and the repeat delay.
func (m Model) Apply(ev Event, cfg *GridConfig) Model {
	switch e := ev.(type) {
	case Input:
		return m.applyInput(e.Orientation)
	case Tick:
		return m.applyTick(e.TimeMs, cfg)
	case ToggleMode:
		m.KeyMode = m.KeyMode.Toggle()
		return m
	case Interrupt:
		m.Movement = Movement{Kind: MoveIdle}
		return m
	default:
		return m
	}
}

func (m Model) applyInput(o Orientation) Model {
	if m.KeyMode == Advance {
		m.Facing = o
		m.Movement = startOrContinue(m.Movement, Forward)
		return m
	}

	switch o {
	case Up:
		m.Movement = startOrContinue(m.Movement, Forward)
	case Down:
		m.Movement = startOrContinue(m.Movement, Backward)
	case Left:
		m.Facing = m.Facing.Rotate(-1)
		m.Movement = Movement{Kind: MoveRotating}
	case Right:
		m.Facing = m.Facing.Rotate(1)
		m.Movement = Movement{Kind: MoveRotating}
	}
	return m
}

func (m Model) applyTick(now int64, cfg *GridConfig) Model {
	switch m.Movement.Kind {
	case MoveStarting:
		m.Position = m.Position.Step(m.Facing, m.Movement.Direction, cfg.GridSize)
		m.Movement = Movement{
			Kind:      MoveRunning,
			Direction: m.Movement.Direction,
			StartedAt: now,
			LastTick:  now,
		}
	case MoveRunning:
		// StartedAt is never refreshed: after the initial repeat delay
		// every subsequent tick steps again, which gives held-key
		// movement a fixed delay followed by tick-rate repeats.
		if now-m.Movement.StartedAt > cfg.RepeatDelayMs {
			m.Position = m.Position.Step(m.Facing, m.Movement.Direction, cfg.GridSize)
		}
		m.Movement.LastTick = now
	}
	return m
}

// startOrContinue requests movement in the given direction. A robot
// already running keeps its timer and only swaps direction; anything else
// restarts from MoveStarting so the next tick takes the first step.
func startOrContinue(mv Movement, d Direction) Movement {
	if mv.Kind == MoveRunning {
		mv.Direction = d
		return mv
	}
	return Movement{Kind: MoveStarting, Direction: d}
}

// Subscriptions reports the event sources required by the current state.
func (m Model) Subscriptions() Subscriptions {
	return Subscriptions{
		RawKeys: m.Movement.Kind == MoveIdle,
		Ticks:   m.Movement.Kind != MoveIdle,
	}
}
