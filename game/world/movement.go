package world

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Distance returns the Euclidean distance between two positions. Ground
// positions have Z = 0, so an airborne vehicle is far from everything on
// the ground.
func Distance(a, b Position) float64 {
	return floats.Distance(
		[]float64{float64(a.X), float64(a.Y), float64(a.Z)},
		[]float64{float64(b.X), float64(b.Y), float64(b.Z)},
		2,
	)
}

// FindNearbyEmpty searches the (2*radius+1)^2 neighbourhood of target for an
// empty in-bounds cell. Candidates are tried in random order, each at most
// once, so the search always terminates. maxAttempts caps the number of
// candidates tried; zero or negative means the whole neighbourhood.
func FindNearbyEmpty(g *Grid, rng *rand.Rand, target Position, radius, maxAttempts int) (Position, error) {
	if radius < 1 {
		radius = DefaultSearchRadius
	}
	side := 2*radius + 1
	candidates := side * side
	attempts := candidates
	if maxAttempts > 0 && maxAttempts < candidates {
		attempts = maxAttempts
	}

	for _, k := range rng.Perm(candidates)[:attempts] {
		p := Position{X: target.X - radius + k%side, Y: target.Y - radius + k/side}
		if !g.InBounds(p) {
			continue
		}
		if occupied, _ := g.IsOccupied(p); !occupied {
			return p, nil
		}
	}

	return Position{}, fmt.Errorf("%w: tried %d cells within radius %d of %s",
		ErrNoSpace, attempts, radius, target.Ground())
}

// MoveResult describes a completed move
type MoveResult struct {
	OccupantID string       `json:"occupant_id"`
	Kind       OccupantKind `json:"kind"`
	From       Position     `json:"from"`
	Requested  Position     `json:"requested"`
	To         Position     `json:"to"`
	Redirected bool         `json:"redirected"`
	Gait       Gait         `json:"gait"`
	Passengers []string     `json:"passengers,omitempty"`
}

// Move moves an NPC or vehicle towards destination. When the destination
// cell is occupied the occupant lands on a random empty neighbour instead.
// Vehicle passengers follow the vehicle without occupancy checks. Airborne
// vehicles ignore the grid entirely.
func (w *World) Move(id string, destination Position, speed int) (*MoveResult, error) {
	if speed < 1 {
		return nil, fmt.Errorf("%w: speed must be at least 1, got %d", ErrInvalidSpeed, speed)
	}

	if npc, ok := w.npcs[id]; ok {
		if npc.VehicleID != "" {
			return nil, fmt.Errorf("%w: NPC %s is riding vehicle %s", ErrAlreadyAboard, npc.Name, npc.VehicleID)
		}
		if destination.Z != 0 {
			return nil, fmt.Errorf("%w: NPC %s cannot move to altitude %d", ErrOutOfBounds, npc.Name, destination.Z)
		}
		to, err := w.relocate(id, npc.Position, destination)
		if err != nil {
			return nil, err
		}
		result := &MoveResult{
			OccupantID: id,
			Kind:       KindNPC,
			From:       npc.Position,
			Requested:  destination,
			To:         to,
			Redirected: to != destination,
			Gait:       GaitForSpeed(speed),
		}
		npc.Position = to
		w.emit(Event{
			Type:         EventMove,
			OccupantID:   id,
			OccupantName: npc.Name,
			From:         &result.From,
			To:           &result.To,
			Gait:         result.Gait,
			Message:      fmt.Sprintf("NPC %s is %s from %s to %s", npc.Name, result.Gait, result.From, result.To),
		})
		return result, nil
	}

	v, ok := w.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOccupant, id)
	}

	to := destination
	if !v.IsAirborne() {
		if destination.Z != 0 {
			return nil, fmt.Errorf("%w: grounded vehicle %s cannot move to altitude %d", ErrOutOfBounds, v.Registration, destination.Z)
		}
		var err error
		to, err = w.relocate(id, v.Position, destination)
		if err != nil {
			return nil, err
		}
	}

	result := &MoveResult{
		OccupantID: id,
		Kind:       KindVehicle,
		From:       v.Position,
		Requested:  destination,
		To:         to,
		Redirected: to != destination,
		Gait:       GaitForSpeed(speed),
		Passengers: append([]string(nil), v.Passengers...),
	}
	v.Position = to
	for _, pid := range v.Passengers {
		if p, ok := w.npcs[pid]; ok {
			p.Position = to
		}
	}

	w.emit(Event{
		Type:         EventMove,
		OccupantID:   id,
		OccupantName: v.Registration,
		From:         &result.From,
		To:           &result.To,
		Gait:         result.Gait,
		Message:      fmt.Sprintf("Vehicle %s is moving from %s to %s", v.Registration, result.From, result.To),
	})
	return result, nil
}

// relocate resolves the final cell for a grid move and applies it
func (w *World) relocate(id string, from, destination Position) (Position, error) {
	occupied, err := w.grid.IsOccupied(destination)
	if err != nil {
		return Position{}, err
	}

	to := destination
	if occupied {
		to, err = FindNearbyEmpty(w.grid, w.rng, destination, w.opts.SearchRadius, w.opts.MaxPlacementAttempts)
		if err != nil {
			return Position{}, err
		}
	}

	if err := w.grid.Relocate(from, to, id); err != nil {
		return Position{}, err
	}
	return to, nil
}
