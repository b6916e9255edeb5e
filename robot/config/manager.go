// Package config loads and caches board configurations from a directory
// of JSON files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/maca/robotgrid/robot/engine"
	"github.com/maca/robotgrid/robot/service"
)

var ErrConfigNotFound = errors.New("configuration not found")

// Manager handles board configuration loading and caching.
type Manager struct {
	configDir string
	configs   map[string]*engine.GridConfig
	mu        sync.RWMutex
}

// NewManager creates a configuration manager for the given directory. A
// missing or empty directory is fine: the built-in default board is
// always available.
func NewManager(configDir string) *Manager {
	return &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.GridConfig),
	}
}

// GetDefault returns the built-in board.
func (m *Manager) GetDefault() *engine.GridConfig {
	return engine.DefaultGridConfig()
}

// LoadConfig loads a board configuration by name (filename without
// extension).
func (m *Manager) LoadConfig(name string) (*engine.GridConfig, error) {
	m.mu.RLock()
	if config, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if config, exists := m.configs[name]; exists {
		return config, nil
	}

	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename += ".json"
	}
	path := filepath.Join(m.configDir, filename)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, name)
	}

	config, err := engine.LoadGridConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s': %w", name, err)
	}

	m.configs[name] = config
	return config, nil
}

// ListConfigs lists the available board configurations, the built-in
// default first.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	def := m.GetDefault()
	infos := []*service.ConfigInfo{{
		ConfigID:    "default",
		Name:        def.Name,
		Description: def.Description,
		GridSize:    def.GridSize,
		CellSize:    def.CellSize,
	}}

	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return infos, nil
		}
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		config, err := m.LoadConfig(name)
		if err != nil {
			// Skip unreadable files rather than failing the listing.
			continue
		}
		infos = append(infos, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    name,
			Name:        config.Name,
			Description: config.Description,
			GridSize:    config.GridSize,
			CellSize:    config.CellSize,
		})
	}

	return infos, nil
}
