package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wricardo/mcp-training/openworld/game/world"
)

// ErrScenarioNotFound is returned when a requested scenario does not exist
var ErrScenarioNotFound = errors.New("scenario not found")

// worldServiceImpl implements the WorldService interface
type worldServiceImpl struct {
	sessions  SessionManager
	scenarios ScenarioManager
	logger    zerolog.Logger
	mu        sync.RWMutex
}

// NewWorldService creates a new world service instance
func NewWorldService(sessions SessionManager, scenarios ScenarioManager, logger zerolog.Logger) WorldService {
	return &worldServiceImpl{
		sessions:  sessions,
		scenarios: scenarios,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// getScenarioID returns the scenario_id for a scenario display name
func (s *worldServiceImpl) getScenarioID(scenario *world.Scenario) string {
	if scenario == nil {
		return "default"
	}
	available, err := s.scenarios.ListScenarios()
	if err == nil {
		for _, info := range available {
			if info.Name == scenario.Name {
				return info.ScenarioID
			}
		}
	}
	return scenario.Name
}

func (s *worldServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ScenarioName:   s.getScenarioID(sess.Scenario),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		WorldState:     sess.World.State(),
	}
}

// CreateSession creates a new world session populated from a scenario
func (s *worldServiceImpl) CreateSession(ctx context.Context, scenarioName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var scenario *world.Scenario
	if scenarioName != "" {
		var err error
		scenario, err = s.scenarios.LoadScenario(scenarioName)
		if err != nil {
			if errors.Is(err, ErrScenarioNotFound) {
				available, listErr := s.scenarios.ListScenarios()
				if listErr == nil && len(available) > 0 {
					ids := make([]string, 0, len(available))
					for _, info := range available {
						ids = append(ids, info.ScenarioID)
					}
					return nil, fmt.Errorf("scenario '%s' not found. Available scenarios: %v", scenarioName, ids)
				}
				return nil, fmt.Errorf("scenario '%s' not found. Use /api/scenarios to list available scenarios", scenarioName)
			}
			return nil, fmt.Errorf("failed to load scenario %s: %w", scenarioName, err)
		}
	} else {
		scenario = s.scenarios.GetDefault()
	}

	// Let the session manager generate a 4-character ID
	sess, err := s.sessions.Create("", scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	info := s.sessionInfo(sess)
	if scenarioName != "" {
		info.ScenarioName = scenarioName
	}
	s.logger.Info().Str("session", sess.ID).Str("scenario", info.ScenarioName).Msg("session created")
	return info, nil
}

// GetSession retrieves session information
func (s *worldServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	// Touching the session writes its access time
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *worldServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *worldServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.logger.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}

// act runs a world mutation under the service lock and converts domain
// failures into an unsuccessful ActionResult
func (s *worldServiceImpl) act(sessionID, action string, fn func(w *world.World) (*ActionResult, error)) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	before := len(sess.World.Events())
	result, err := fn(sess.World)
	if err != nil {
		result = &ActionResult{
			Success: false,
			Code:    world.ErrorCode(err),
			Message: err.Error(),
		}
	} else {
		if result == nil {
			result = &ActionResult{}
		}
		result.Success = true
		if len(sess.World.Events()) > before {
			result.Event = sess.World.LastEvent()
			result.Message = result.Event.Message
		}
	}
	result.State = sess.World.State()

	s.logger.Info().
		Str("session", sessionID).
		Str("action", action).
		Bool("success", result.Success).
		Str("code", result.Code).
		Msg(result.Message)

	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).Str("action", action).Msg("failed to persist session")
	}
	return result, nil
}

// SpawnNPC adds an NPC to a session's world
func (s *worldServiceImpl) SpawnNPC(ctx context.Context, sessionID string, spec world.NPCSpec) (*ActionResult, error) {
	return s.act(sessionID, "spawn_npc", func(w *world.World) (*ActionResult, error) {
		npc, err := w.SpawnNPC(spec)
		if err != nil {
			return nil, err
		}
		return &ActionResult{NPC: npc}, nil
	})
}

// SpawnVehicle adds a vehicle to a session's world
func (s *worldServiceImpl) SpawnVehicle(ctx context.Context, sessionID string, spec world.VehicleSpec) (*ActionResult, error) {
	return s.act(sessionID, "spawn_vehicle", func(w *world.World) (*ActionResult, error) {
		v, err := w.SpawnVehicle(spec)
		if err != nil {
			return nil, err
		}
		return &ActionResult{Vehicle: v}, nil
	})
}

// Move moves an NPC or vehicle
func (s *worldServiceImpl) Move(ctx context.Context, sessionID string, req MoveRequest) (*ActionResult, error) {
	speed := req.Speed
	if speed == 0 {
		speed = 1
	}
	return s.act(sessionID, "move", func(w *world.World) (*ActionResult, error) {
		move, err := w.Move(req.OccupantID, req.To, speed)
		if err != nil {
			return nil, err
		}
		return &ActionResult{Move: move}, nil
	})
}

// Alert startles an NPC
func (s *worldServiceImpl) Alert(ctx context.Context, sessionID, npcID string) (*ActionResult, error) {
	return s.act(sessionID, "alert", func(w *world.World) (*ActionResult, error) {
		npc, err := w.Alert(npcID)
		if err != nil {
			return nil, err
		}
		return &ActionResult{NPC: npc}, nil
	})
}

// ChangeMood sets an NPC's mood
func (s *worldServiceImpl) ChangeMood(ctx context.Context, sessionID, npcID string, mood world.Mood) (*ActionResult, error) {
	return s.act(sessionID, "change_mood", func(w *world.World) (*ActionResult, error) {
		npc, err := w.ChangeMood(npcID, mood)
		if err != nil {
			return nil, err
		}
		return &ActionResult{NPC: npc}, nil
	})
}

// Board puts an NPC into a vehicle
func (s *worldServiceImpl) Board(ctx context.Context, sessionID, vehicleID, npcID string) (*ActionResult, error) {
	return s.act(sessionID, "board", func(w *world.World) (*ActionResult, error) {
		v, err := w.Board(vehicleID, npcID)
		if err != nil {
			return nil, err
		}
		return &ActionResult{Vehicle: v}, nil
	})
}

// Disembark lets a passenger out of a vehicle
func (s *worldServiceImpl) Disembark(ctx context.Context, sessionID, vehicleID, npcID string) (*ActionResult, error) {
	return s.act(sessionID, "disembark", func(w *world.World) (*ActionResult, error) {
		npc, err := w.Disembark(vehicleID, npcID)
		if err != nil {
			return nil, err
		}
		return &ActionResult{NPC: npc}, nil
	})
}

// SetSiren switches a vehicle's siren
func (s *worldServiceImpl) SetSiren(ctx context.Context, sessionID, vehicleID, state string) (*ActionResult, error) {
	state = strings.ToLower(strings.TrimSpace(state))
	return s.act(sessionID, "siren", func(w *world.World) (*ActionResult, error) {
		v, err := w.SetSiren(vehicleID, state)
		if err != nil {
			return nil, err
		}
		return &ActionResult{Vehicle: v}, nil
	})
}

// SetLandingGear raises or lowers a vehicle's landing gear
func (s *worldServiceImpl) SetLandingGear(ctx context.Context, sessionID, vehicleID, state string) (*ActionResult, error) {
	state = strings.ToLower(strings.TrimSpace(state))
	return s.act(sessionID, "landing_gear", func(w *world.World) (*ActionResult, error) {
		v, err := w.SetLandingGear(vehicleID, state)
		if err != nil {
			return nil, err
		}
		return &ActionResult{Vehicle: v}, nil
	})
}

// Reset rebuilds a session's world from its scenario
func (s *worldServiceImpl) Reset(ctx context.Context, sessionID string) (*world.WorldState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	scenario := sess.Scenario
	if scenario == nil {
		scenario = s.scenarios.GetDefault()
	}
	w, err := world.NewWorldFromScenario(scenario, world.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild world: %w", err)
	}
	sess.World = w
	sess.Scenario = scenario

	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).Msg("failed to persist session after reset")
	}
	s.logger.Info().Str("session", sessionID).Msg("world reset")
	return w.State(), nil
}

// GetWorldState retrieves the current world snapshot
func (s *worldServiceImpl) GetWorldState(ctx context.Context, sessionID string) (*world.WorldState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.World.State(), nil
}

// GetEventLog returns a page of the event log
func (s *worldServiceImpl) GetEventLog(ctx context.Context, sessionID string, opts EventLogOptions) (*EventLogResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.World.Events()
	if opts.Type != "" {
		filtered := history[:0]
		for _, e := range history {
			if string(e.Type) == opts.Type {
				filtered = append(filtered, e)
			}
		}
		history = filtered
	}
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	events := []world.Event{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, history[i])
		}
	} else if start < total {
		events = append(events, history[start:end]...)
	}

	return &EventLogResponse{
		Events:      events,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// DescribeCell reports what occupies a grid cell
func (s *worldServiceImpl) DescribeCell(ctx context.Context, sessionID string, x, y int) (*world.CellInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	return sess.World.DescribeCell(world.Pos(x, y))
}

// ListScenarios returns available scenarios
func (s *worldServiceImpl) ListScenarios(ctx context.Context) ([]*ScenarioInfo, error) {
	return s.scenarios.ListScenarios()
}

// LoadScenario loads a scenario by name
func (s *worldServiceImpl) LoadScenario(ctx context.Context, name string) (*world.Scenario, error) {
	return s.scenarios.LoadScenario(name)
}

// SaveScenario validates and stores a scenario
func (s *worldServiceImpl) SaveScenario(ctx context.Context, name string, scenario *world.Scenario) error {
	if err := s.scenarios.SaveScenario(name, scenario); err != nil {
		return err
	}
	s.logger.Info().Str("scenario", name).Msg("scenario saved")
	return nil
}
