package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/openworld/game/world"
)

// WorldService defines all world operations exposed to transports
type WorldService interface {
	// Session Management
	CreateSession(ctx context.Context, scenarioName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Population
	SpawnNPC(ctx context.Context, sessionID string, spec world.NPCSpec) (*ActionResult, error)
	SpawnVehicle(ctx context.Context, sessionID string, spec world.VehicleSpec) (*ActionResult, error)

	// Actions
	Move(ctx context.Context, sessionID string, req MoveRequest) (*ActionResult, error)
	Alert(ctx context.Context, sessionID, npcID string) (*ActionResult, error)
	ChangeMood(ctx context.Context, sessionID, npcID string, mood world.Mood) (*ActionResult, error)
	Board(ctx context.Context, sessionID, vehicleID, npcID string) (*ActionResult, error)
	Disembark(ctx context.Context, sessionID, vehicleID, npcID string) (*ActionResult, error)
	SetSiren(ctx context.Context, sessionID, vehicleID, state string) (*ActionResult, error)
	SetLandingGear(ctx context.Context, sessionID, vehicleID, state string) (*ActionResult, error)
	Reset(ctx context.Context, sessionID string) (*world.WorldState, error)

	// World State
	GetWorldState(ctx context.Context, sessionID string) (*world.WorldState, error)
	GetEventLog(ctx context.Context, sessionID string, opts EventLogOptions) (*EventLogResponse, error)
	DescribeCell(ctx context.Context, sessionID string, x, y int) (*world.CellInfo, error)

	// Scenarios
	ListScenarios(ctx context.Context) ([]*ScenarioInfo, error)
	LoadScenario(ctx context.Context, name string) (*world.Scenario, error)
	SaveScenario(ctx context.Context, name string, scenario *world.Scenario) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, scenario *world.Scenario) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, scenario *world.Scenario) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ScenarioManager handles scenario loading
type ScenarioManager interface {
	LoadScenario(name string) (*world.Scenario, error)
	ListScenarios() ([]*ScenarioInfo, error)
	GetDefault() *world.Scenario
	SaveScenario(name string, scenario *world.Scenario) error
}

// Session represents an active world session
type Session struct {
	ID             string
	World          *world.World
	Scenario       *world.Scenario
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
