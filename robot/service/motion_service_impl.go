package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maca/robotgrid/monitor"
	"github.com/maca/robotgrid/robot/engine"
	"github.com/maca/robotgrid/robot/keymap"
	"github.com/maca/robotgrid/robot/script"
)

// MaxScriptDuration caps the total sleep time of a replayed script so one
// request cannot hold a connection open indefinitely.
const MaxScriptDuration = 30 * time.Second

// ErrScriptTooLong is returned when a script's waits exceed the cap.
var ErrScriptTooLong = errors.New("script duration exceeds limit")

type motionServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	keys     *keymap.Keymap
}

// NewMotionService creates a motion service. A nil keymap uses the
// default bindings.
func NewMotionService(sessions SessionManager, configs ConfigManager, keys *keymap.Keymap) MotionService {
	if keys == nil {
		keys = keymap.Default()
	}
	return &motionServiceImpl{
		sessions: sessions,
		configs:  configs,
		keys:     keys,
	}
}

// CreateSession creates a new robot session on the named board.
func (s *motionServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	var config *engine.GridConfig
	if configName == "" || configName == "default" {
		config = s.configs.GetDefault()
		configName = "default"
	} else {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	}

	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	snap, err := session.Runner.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return &SessionInfo{
		ID:             session.ID,
		ConfigName:     configName,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		Snapshot:       snap,
		GridConfig:     session.Config,
	}, nil
}

// GetSession retrieves session information.
func (s *motionServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	snap, err := session.Runner.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return &SessionInfo{
		ID:             session.ID,
		ConfigName:     session.Config.Name,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		Snapshot:       snap,
		GridConfig:     session.Config,
	}, nil
}

// ListSessions returns all active sessions.
func (s *motionServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	infos := make([]*SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		snap, err := session.Runner.Snapshot(ctx)
		if err != nil {
			continue
		}
		infos = append(infos, &SessionInfo{
			ID:             session.ID,
			ConfigName:     session.Config.Name,
			CreatedAt:      session.CreatedAt,
			LastAccessedAt: session.LastAccessedAt,
			Snapshot:       snap,
			GridConfig:     session.Config,
		})
	}
	return infos, nil
}

// DeleteSession removes a session and stops its runner.
func (s *motionServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(sessionID)
}

// KeyDown handles a raw keyboard press. Directional keys are honored only
// while the machine listens for raw keys; anything unbound interrupts.
func (s *motionServiceImpl) KeyDown(ctx context.Context, sessionID, key string) (*EventResult, error) {
	return s.submit(ctx, sessionID, s.keys.KeyDown(key), true)
}

// KeyUp handles a raw keyboard release.
func (s *motionServiceImpl) KeyUp(ctx context.Context, sessionID, key string) (*EventResult, error) {
	return s.submit(ctx, sessionID, s.keys.KeyUp(key), false)
}

// ControlDown handles a pointer press on a named directional control.
// On-screen controls are always active, so these bypass the raw-key gate.
func (s *motionServiceImpl) ControlDown(ctx context.Context, sessionID, control string) (*EventResult, error) {
	return s.submit(ctx, sessionID, s.keys.Control(control), false)
}

// ControlUp handles a pointer release anywhere: it stops the robot.
func (s *motionServiceImpl) ControlUp(ctx context.Context, sessionID string) (*EventResult, error) {
	return s.submit(ctx, sessionID, engine.Interrupt{}, false)
}

// ToggleMode flips the key mode.
func (s *motionServiceImpl) ToggleMode(ctx context.Context, sessionID string) (*EventResult, error) {
	return s.submit(ctx, sessionID, engine.ToggleMode{}, false)
}

// Interrupt stops the robot.
func (s *motionServiceImpl) Interrupt(ctx context.Context, sessionID string) (*EventResult, error) {
	return s.submit(ctx, sessionID, engine.Interrupt{}, false)
}

func (s *motionServiceImpl) submit(ctx context.Context, sessionID string, ev engine.Event, raw bool) (*EventResult, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	var (
		snap     engine.Snapshot
		accepted = true
	)
	if raw {
		snap, accepted, err = session.Runner.SubmitRaw(ctx, ev)
	} else {
		snap, err = session.Runner.Submit(ctx, ev)
	}
	if err != nil {
		return nil, err
	}

	if accepted {
		monitor.IncEventsProcessed(ev.Name())
	} else {
		monitor.IncEventsDropped()
	}

	return &EventResult{
		Accepted: accepted,
		Event:    ev.Name(),
		Snapshot: snap,
	}, nil
}

// RunScript parses, compiles, and replays an input script against the
// session, sleeping out its delays in real time so the animation ticks
// pace movement exactly as held keys would.
func (s *motionServiceImpl) RunScript(ctx context.Context, sessionID, source string) (*ScriptResult, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	steps, err := script.CompileString(source)
	if err != nil {
		return nil, err
	}

	var totalDelay time.Duration
	for _, step := range steps {
		totalDelay += time.Duration(step.DelayMs) * time.Millisecond
	}
	if totalDelay > MaxScriptDuration {
		return nil, fmt.Errorf("%w: %s > %s", ErrScriptTooLong, totalDelay, MaxScriptDuration)
	}

	started := time.Now()
	result := &ScriptResult{}

	for _, step := range steps {
		if step.Event != nil {
			accepted := true
			if _, isInput := step.Event.(engine.Input); isInput {
				// Scripts emulate keyboard input, so directional
				// presses respect the raw-key subscription.
				_, accepted, err = session.Runner.SubmitRaw(ctx, step.Event)
			} else {
				_, err = session.Runner.Submit(ctx, step.Event)
			}
			if err != nil {
				return nil, err
			}

			if accepted {
				monitor.IncEventsProcessed(step.Event.Name())
			} else {
				monitor.IncEventsDropped()
				result.DroppedInputs++
			}
			result.StepsExecuted++
		}

		if step.DelayMs > 0 {
			select {
			case <-time.After(time.Duration(step.DelayMs) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	snap, err := session.Runner.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	result.Snapshot = snap
	result.DurationMs = time.Since(started).Milliseconds()

	return result, nil
}

// GetSnapshot returns the current model snapshot.
func (s *motionServiceImpl) GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	snap, err := session.Runner.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Reset restores the session's board to its initial model.
func (s *motionServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	snap, err := session.Runner.Reset(ctx)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetEventLog returns a page of the session's transition log.
func (s *motionServiceImpl) GetEventLog(ctx context.Context, sessionID string, opts LogOptions) (*LogResponse, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	events, err := session.Runner.EventLog(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 50
	}
	// Newest first unless ascending order is asked for explicitly.
	if opts.Order != "asc" {
		reversed := make([]engine.EventRecord, len(events))
		for i, e := range events {
			reversed[len(events)-1-i] = e
		}
		events = reversed
	}

	total := len(events)
	totalPages := (total + opts.Limit - 1) / opts.Limit
	start := (opts.Page - 1) * opts.Limit
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}

	return &LogResponse{
		Events:      events[start:end],
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs lists the available board configurations.
func (s *motionServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}
