package service

import (
	"time"

	"github.com/wricardo/mcp-training/openworld/game/world"
)

// SessionInfo provides information about a world session
type SessionInfo struct {
	ID             string            `json:"id"`
	ScenarioName   string            `json:"scenario_name"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	WorldState     *world.WorldState `json:"world_state"`
}

// ActionResult contains the outcome of a world action. Domain failures are
// reported with Success false and a machine-friendly Code; they never abort
// the session.
type ActionResult struct {
	Success bool              `json:"success"`
	Code    string            `json:"code,omitempty"` // out_of_bounds|occupied|no_space|too_far|vehicle_full|...
	Message string            `json:"message"`
	Event   *world.Event      `json:"event,omitempty"`
	Move    *world.MoveResult `json:"move,omitempty"`
	NPC     *world.NPC        `json:"npc,omitempty"`
	Vehicle *world.Vehicle    `json:"vehicle,omitempty"`
	State   *world.WorldState `json:"world_state"`
}

// MoveRequest describes a single move of an NPC or vehicle
type MoveRequest struct {
	OccupantID string         `json:"occupant_id"`
	To         world.Position `json:"to"`
	Speed      int            `json:"speed"`
}

// EventLogOptions configures event log retrieval
type EventLogOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
	Type  string `json:"type,omitempty"`
}

// EventLogResponse contains a page of the event log
type EventLogResponse struct {
	Events      []world.Event `json:"events"`
	TotalEvents int           `json:"total_events"`
	Page        int           `json:"page"`
	PageSize    int           `json:"page_size"`
	TotalPages  int           `json:"total_pages"`
	HasNext     bool          `json:"has_next"`
	HasPrevious bool          `json:"has_previous"`
}

// ScenarioInfo provides information about a scenario file
type ScenarioInfo struct {
	Filename     string `json:"filename"`
	ScenarioID   string `json:"scenario_id"` // The identifier to use for session creation
	Name         string `json:"name"`
	Description  string `json:"description"`
	NPCCount     int    `json:"npc_count"`
	VehicleCount int    `json:"vehicle_count"`
}
