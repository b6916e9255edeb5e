package engine

// Motion is the interface for driving one robot.
type Motion interface {
	// State
	Model() Model
	Snapshot() Snapshot
	Subscriptions() Subscriptions
	Reset() Model

	// Events
	Dispatch(ev Event) Model

	// Configuration
	Config() *GridConfig

	// History
	EventLog() []EventRecord
}

// maxEventLog caps the per-robot history. Once the log is full the oldest
// records are dropped, so a long-lived session does not grow without bound.
const maxEventLog = 1000

// EventRecord is one entry of the robot's event log: the event that was
// applied and the position/facing it produced.
type EventRecord struct {
	Seq      int         `json:"seq"`
	Event    string      `json:"event"`
	From     Position    `json:"from"`
	To       Position    `json:"to"`
	Facing   Orientation `json:"facing"`
	Movement string      `json:"movement"`
	KeyMode  string      `json:"key_mode"`
	TimeMs   int64       `json:"time_ms,omitempty"`
	Moved    bool        `json:"moved"`
}

// Snapshot is the model plus the event sources it requires, handed to
// renderers after every transition.
type Snapshot struct {
	Model         Model         `json:"model"`
	Subscriptions Subscriptions `json:"subscriptions"`
	GridSize      int           `json:"grid_size"`
	CellSize      int           `json:"cell_size"`
	Seq           int           `json:"seq"`
}

// Robot implements Motion: it owns one model and applies events to it,
// recording each transition.
type Robot struct {
	model  Model
	config *GridConfig
	log    []EventRecord
	seq    int
}

// NewRobot creates a robot on the given board.
func NewRobot(config *GridConfig) (*Robot, error) {
	if config == nil {
		config = DefaultGridConfig()
	}
	applyConfigDefaults(config)
	if err := ValidateGridConfig(config); err != nil {
		return nil, err
	}

	return &Robot{
		model:  InitModelFromConfig(config),
		config: config,
	}, nil
}

// Model returns the current model.
func (r *Robot) Model() Model {
	return r.model
}

// Config returns the board configuration.
func (r *Robot) Config() *GridConfig {
	return r.config
}

// Subscriptions returns the event sources required by the current state.
func (r *Robot) Subscriptions() Subscriptions {
	return r.model.Subscriptions()
}

// Snapshot returns the current model with its subscriptions and board
// dimensions.
func (r *Robot) Snapshot() Snapshot {
	return Snapshot{
		Model:         r.model,
		Subscriptions: r.model.Subscriptions(),
		GridSize:      r.config.GridSize,
		CellSize:      r.config.CellSize,
		Seq:           r.seq,
	}
}

// Dispatch applies one event and records the transition. Tick records are
// only logged when they move the robot, so a held key does not flood the
// log with no-op frames.
func (r *Robot) Dispatch(ev Event) Model {
	prev := r.model
	r.model = r.model.Apply(ev, r.config)

	moved := prev.Position != r.model.Position
	if _, isTick := ev.(Tick); !isTick || moved {
		r.seq++
		rec := EventRecord{
			Seq:      r.seq,
			Event:    ev.Name(),
			From:     prev.Position,
			To:       r.model.Position,
			Facing:   r.model.Facing,
			Movement: r.model.Movement.Kind.String(),
			KeyMode:  r.model.KeyMode.String(),
			Moved:    moved,
		}
		if tick, ok := ev.(Tick); ok {
			rec.TimeMs = tick.TimeMs
		}
		r.record(rec)
	}

	return r.model
}

// Reset returns the robot to the board's initial model. The event log is
// preserved across resets.
func (r *Robot) Reset() Model {
	r.model = InitModelFromConfig(r.config)
	r.seq++
	r.record(EventRecord{
		Seq:      r.seq,
		Event:    "reset",
		From:     r.model.Position,
		To:       r.model.Position,
		Facing:   r.model.Facing,
		Movement: r.model.Movement.Kind.String(),
		KeyMode:  r.model.KeyMode.String(),
	})
	return r.model
}

// EventLog returns the recorded transitions, oldest first.
func (r *Robot) EventLog() []EventRecord {
	return r.log
}

func (r *Robot) record(rec EventRecord) {
	r.log = append(r.log, rec)
	if len(r.log) > maxEventLog {
		r.log = r.log[len(r.log)-maxEventLog:]
	}
}
