// Package session manages live robot sessions: an in-memory registry plus
// the per-session runner goroutine that owns each robot's model. Sessions
// live for the process lifetime only; there is no disk persistence.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maca/robotgrid/monitor"
	"github.com/maca/robotgrid/robot/engine"
	"github.com/maca/robotgrid/robot/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
)

// Manager handles robot session lifecycle.
type Manager struct {
	ctx      context.Context
	sessions map[string]*service.Session
	onChange func(sessionID string, snap engine.Snapshot)
	mu       sync.RWMutex
}

// NewManager creates a session manager. Runners are started under the
// given context; onChange receives every model change tagged with its
// session ID (typically wired to the websocket hub) and may be nil.
func NewManager(ctx context.Context, onChange func(sessionID string, snap engine.Snapshot)) *Manager {
	return &Manager{
		ctx:      ctx,
		sessions: make(map[string]*service.Session),
		onChange: onChange,
	}
}

// Create creates a new session with the given ID and board configuration.
// An empty ID gets a generated one.
func (m *Manager) Create(id string, config *engine.GridConfig) (*service.Session, error) {
	if id == "" {
		id = uuid.NewString()[:8]
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, ErrSessionAlreadyExists
	}

	robot, err := engine.NewRobot(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create robot: %w", err)
	}

	var notify func(engine.Snapshot)
	if m.onChange != nil {
		sessionID := id
		notify = func(snap engine.Snapshot) {
			m.onChange(sessionID, snap)
		}
	}

	runner := NewRunner(robot, notify)
	runner.Start(m.ctx)

	session := &service.Session{
		ID:             id,
		Runner:         runner,
		Config:         robot.Config(),
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	m.sessions[id] = session
	monitor.SetActiveSessions(len(m.sessions))

	return session, nil
}

// Get retrieves a session by ID.
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns all sessions ordered by creation time.
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*service.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// Delete stops a session's runner and removes it.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	session, exists := m.sessions[id]
	if exists {
		delete(m.sessions, id)
	}
	monitor.SetActiveSessions(len(m.sessions))
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}

	session.Runner.Stop()
	return nil
}

// UpdateLastAccessed refreshes a session's last-accessed timestamp.
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return ErrSessionNotFound
	}
	session.LastAccessedAt = time.Now()
	return nil
}

// StopAll stops every runner, used during shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := make([]*service.Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	monitor.SetActiveSessions(0)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Runner.Stop()
	}
}
