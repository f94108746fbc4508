package world

import (
	"fmt"
	"slices"
)

// WorldState is the serialisable snapshot of a world
type WorldState struct {
	Name                 string    `json:"name"`
	Width                int       `json:"width"`
	Height               int       `json:"height"`
	BoardingRange        float64   `json:"boarding_range"`
	SearchRadius         int       `json:"search_radius"`
	MaxPlacementAttempts int       `json:"max_placement_attempts,omitempty"`
	NPCs                 []NPC     `json:"npcs"`
	Vehicles             []Vehicle `json:"vehicles"`
	Events               []Event   `json:"events"`
	OccupiedCells        int       `json:"occupied_cells"`
}

// State returns a deep copy of the world suitable for persistence
func (w *World) State() *WorldState {
	state := &WorldState{
		Name:                 w.opts.Name,
		Width:                w.grid.Width(),
		Height:               w.grid.Height(),
		BoardingRange:        w.opts.BoardingRange,
		SearchRadius:         w.opts.SearchRadius,
		MaxPlacementAttempts: w.opts.MaxPlacementAttempts,
		NPCs:                 make([]NPC, 0, len(w.npcs)),
		Vehicles:             make([]Vehicle, 0, len(w.vehicles)),
		Events:               w.Events(),
		OccupiedCells:        w.grid.OccupiedCount(),
	}
	for _, npc := range w.NPCs() {
		state.NPCs = append(state.NPCs, *npc)
	}
	for _, v := range w.Vehicles() {
		c := *v
		c.Capabilities = slices.Clone(v.Capabilities)
		c.Passengers = slices.Clone(v.Passengers)
		if c.Passengers == nil {
			c.Passengers = []string{}
		}
		state.Vehicles = append(state.Vehicles, c)
	}
	if state.Events == nil {
		state.Events = []Event{}
	}
	return state
}

// Restore rebuilds a world from a snapshot. The grid index is recomputed
// from occupant positions and every cross reference is checked. opts
// supplies the random source and clock; sizing and limits come from state.
func Restore(state *WorldState, opts Options) (*World, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: state cannot be nil", ErrInvalidState)
	}
	width, height := state.Width, state.Height
	if width == 0 && height == 0 {
		width, height = MapSize, MapSize
	}

	opts.Name = state.Name
	opts.BoardingRange = state.BoardingRange
	opts.SearchRadius = state.SearchRadius
	opts.MaxPlacementAttempts = state.MaxPlacementAttempts
	w := newWorld(NewGrid(width, height), opts)

	for i := range state.NPCs {
		npc := state.NPCs[i]
		if npc.ID == "" || w.has(npc.ID) {
			return nil, fmt.Errorf("%w: NPC %q has a missing or duplicate ID", ErrInvalidState, npc.Name)
		}
		if npc.VehicleID == "" {
			if err := w.grid.Register(npc.Position, npc.ID); err != nil {
				return nil, fmt.Errorf("%w: NPC %s: %v", ErrInvalidState, npc.ID, err)
			}
		}
		w.npcs[npc.ID] = &npc
		w.order = append(w.order, npc.ID)
	}

	for i := range state.Vehicles {
		v := state.Vehicles[i]
		if v.ID == "" || w.has(v.ID) {
			return nil, fmt.Errorf("%w: vehicle %q has a missing or duplicate ID", ErrInvalidState, v.Registration)
		}
		if len(v.Passengers) > v.Capacity {
			return nil, fmt.Errorf("%w: vehicle %s carries %d passengers over capacity %d",
				ErrInvalidState, v.ID, len(v.Passengers), v.Capacity)
		}
		v.Capabilities = slices.Clone(v.Capabilities)
		v.Passengers = slices.Clone(v.Passengers)
		if v.Passengers == nil {
			v.Passengers = []string{}
		}
		if !v.IsAirborne() {
			if err := w.grid.Register(v.Position, v.ID); err != nil {
				return nil, fmt.Errorf("%w: vehicle %s: %v", ErrInvalidState, v.ID, err)
			}
		}
		w.vehicles[v.ID] = &v
		w.order = append(w.order, v.ID)
	}

	for _, npc := range w.npcs {
		if npc.VehicleID == "" {
			continue
		}
		v, ok := w.vehicles[npc.VehicleID]
		if !ok || !v.HasPassenger(npc.ID) {
			return nil, fmt.Errorf("%w: NPC %s rides unknown vehicle %s", ErrInvalidState, npc.ID, npc.VehicleID)
		}
	}
	for _, v := range w.vehicles {
		for _, pid := range v.Passengers {
			npc, ok := w.npcs[pid]
			if !ok || npc.VehicleID != v.ID {
				return nil, fmt.Errorf("%w: vehicle %s lists unknown passenger %s", ErrInvalidState, v.ID, pid)
			}
		}
	}

	w.events = slices.Clone(state.Events)
	return w, nil
}
