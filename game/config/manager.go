package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/openworld/game/service"
	"github.com/wricardo/mcp-training/openworld/game/world"
)

var (
	ErrScenarioNotFound = service.ErrScenarioNotFound
	ErrInvalidScenario  = errors.New("invalid scenario")
)

// preferredDefault is the scenario used when none is requested
const preferredDefault = "demo"

// Manager handles scenario loading and caching
type Manager struct {
	scenarioDir     string
	defaultScenario *world.Scenario
	scenarios       map[string]*world.Scenario
	mu              sync.RWMutex
}

// NewManager creates a scenario manager over a directory of JSON files
func NewManager(scenarioDir string) (*Manager, error) {
	if _, err := os.Stat(scenarioDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario directory does not exist: %s", scenarioDir)
	}

	m := &Manager{
		scenarioDir: scenarioDir,
		scenarios:   make(map[string]*world.Scenario),
	}
	m.loadDefaultScenario()
	return m, nil
}

// scenarioName strips a trailing .json so "demo" and "demo.json" share a cache entry
func scenarioName(name string) string {
	return strings.TrimSuffix(name, ".json")
}

// LoadScenario loads a scenario by name
func (m *Manager) LoadScenario(name string) (*world.Scenario, error) {
	name = scenarioName(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, ErrScenarioNotFound
	}

	m.mu.RLock()
	if s, exists := m.scenarios[name]; exists {
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(name)
}

// loadLocked reads a scenario file into the cache. Callers hold m.mu.
func (m *Manager) loadLocked(name string) (*world.Scenario, error) {
	if s, exists := m.scenarios[name]; exists {
		return s, nil
	}

	s, err := world.LoadScenarioFile(filepath.Join(m.scenarioDir, name+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrScenarioNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	m.scenarios[name] = s
	return s, nil
}

// ListScenarios returns information about every valid scenario file,
// sorted by ID. Invalid files are skipped.
func (m *Manager) ListScenarios() ([]*service.ScenarioInfo, error) {
	entries, err := os.ReadDir(m.scenarioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var infos []*service.ScenarioInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := scenarioName(entry.Name())
		s, err := m.LoadScenario(id)
		if err != nil {
			continue
		}

		infos = append(infos, &service.ScenarioInfo{
			Filename:     entry.Name(),
			ScenarioID:   id,
			Name:         s.Name,
			Description:  s.Description,
			NPCCount:     len(s.NPCs),
			VehicleCount: len(s.Vehicles),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ScenarioID < infos[j].ScenarioID })
	return infos, nil
}

// GetDefault returns the default scenario
func (m *Manager) GetDefault() *world.Scenario {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultScenario
}

// SetDefault sets the default scenario by name
func (m *Manager) SetDefault(name string) error {
	s, err := m.LoadScenario(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultScenario = s
	return nil
}

// RefreshCache drops every cached scenario and reselects the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.scenarios = make(map[string]*world.Scenario)
	m.mu.Unlock()

	m.loadDefaultScenario()
}

// loadDefaultScenario prefers demo.json, then the first valid scenario,
// then the built-in demo
func (m *Manager) loadDefaultScenario() {
	s, err := m.LoadScenario(preferredDefault)
	if err != nil {
		infos, listErr := m.ListScenarios()
		if listErr == nil && len(infos) > 0 {
			s, err = m.LoadScenario(infos[0].ScenarioID)
		}
	}
	if err != nil || s == nil {
		s = world.DefaultScenario()
	}

	m.mu.Lock()
	m.defaultScenario = s
	m.mu.Unlock()
}

// SaveScenario validates a scenario and writes it to disk
func (m *Manager) SaveScenario(name string, scenario *world.Scenario) error {
	name = scenarioName(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid scenario file name %q", ErrInvalidScenario, name)
	}
	if err := world.ValidateScenario(scenario); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	data, err := json.MarshalIndent(scenario, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}

	path := filepath.Join(m.scenarioDir, name+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}

	m.mu.Lock()
	m.scenarios[name] = scenario
	m.mu.Unlock()
	return nil
}
