package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/mcp-training/openworld/game/service"
	"github.com/wricardo/mcp-training/openworld/game/world"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the stored form of a session. The world is kept
// as a full snapshot; the scenario is referenced by ID for resets.
type PersistedSessionData struct {
	ID             string            `json:"id"`
	ScenarioName   string            `json:"scenario_name"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	WorldState     *world.WorldState `json:"world_state"`
}

// snapshot converts a live session into its stored form
func snapshot(sess *service.Session, scenarios service.ScenarioManager) (*PersistedSessionData, error) {
	if sess == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}
	if sess.World == nil {
		return nil, fmt.Errorf("session %s has no world", sess.ID)
	}
	return &PersistedSessionData{
		ID:             sess.ID,
		ScenarioName:   scenarioID(sess.Scenario, scenarios),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		WorldState:     sess.World.State(),
	}, nil
}

// restore rebuilds a live session from its stored form. A scenario that no
// longer exists only disables resets to it; the world itself is restored.
func restore(data *PersistedSessionData, scenarios service.ScenarioManager) (*service.Session, error) {
	w, err := world.Restore(data.WorldState, world.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to restore world: %w", err)
	}

	var scenario *world.Scenario
	if data.ScenarioName != "" && scenarios != nil {
		scenario, err = scenarios.LoadScenario(data.ScenarioName)
		if err != nil && !errors.Is(err, service.ErrScenarioNotFound) {
			return nil, fmt.Errorf("failed to load scenario '%s': %w", data.ScenarioName, err)
		}
	}

	return &service.Session{
		ID:             data.ID,
		World:          w,
		Scenario:       scenario,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// scenarioID returns the scenario ID (filename without extension) for a
// scenario, falling back to its display name
func scenarioID(scenario *world.Scenario, scenarios service.ScenarioManager) string {
	if scenario == nil {
		return ""
	}
	if scenarios != nil {
		if infos, err := scenarios.ListScenarios(); err == nil {
			for _, info := range infos {
				if info.Name == scenario.Name {
					return info.ScenarioID
				}
			}
		}
	}
	return scenario.Name
}
