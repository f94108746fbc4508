package world

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Vehicle is a passenger-carrying occupant. Its behaviour is selected by
// capability tags rather than by type.
type Vehicle struct {
	ID            string       `json:"id"`
	Registration  string       `json:"registration"`
	Make          string       `json:"make,omitempty"`
	Model         string       `json:"model,omitempty"`
	Colour        string       `json:"colour,omitempty"`
	Position      Position     `json:"position"`
	Capacity      int          `json:"capacity"`
	Capabilities  []Capability `json:"capabilities"`
	BoardingRange float64      `json:"boarding_range,omitempty"`
	Passengers    []string     `json:"passengers"`
	Siren         string       `json:"siren,omitempty"`
	LandingGear   string       `json:"landing_gear,omitempty"`
}

// VehicleSpec describes a vehicle to spawn
type VehicleSpec struct {
	ID            string       `json:"id,omitempty"`
	Registration  string       `json:"registration"`
	Make          string       `json:"make,omitempty"`
	Model         string       `json:"model,omitempty"`
	Colour        string       `json:"colour,omitempty"`
	Position      Position     `json:"position"`
	Capacity      int          `json:"capacity"`
	Capabilities  []Capability `json:"capabilities,omitempty"`
	BoardingRange float64      `json:"boarding_range,omitempty"`
}

// Has reports whether the vehicle carries capability c
func (v *Vehicle) Has(c Capability) bool {
	return slices.Contains(v.Capabilities, c)
}

// IsAirborne reports whether the vehicle flies above the grid
func (v *Vehicle) IsAirborne() bool {
	return v.Has(Airborne)
}

// IsFull reports whether every seat is taken
func (v *Vehicle) IsFull() bool {
	return len(v.Passengers) >= v.Capacity
}

// HasPassenger reports whether the NPC with the given ID is aboard
func (v *Vehicle) HasPassenger(id string) bool {
	return slices.Contains(v.Passengers, id)
}

// NormalizeCapabilities validates a capability set and adds the grounded
// tag when no movement mode is given.
func NormalizeCapabilities(caps []Capability) ([]Capability, error) {
	seen := make(map[Capability]bool, len(caps))
	result := make([]Capability, 0, len(caps)+1)
	for _, c := range caps {
		switch c {
		case Grounded, Airborne, Siren, LandingGear:
		default:
			return nil, fmt.Errorf("%w: unknown capability %q", ErrInvalidTag, c)
		}
		if !seen[c] {
			seen[c] = true
			result = append(result, c)
		}
	}

	switch {
	case seen[Grounded] && seen[Airborne]:
		return nil, fmt.Errorf("%w: a vehicle cannot be both grounded and airborne", ErrInvalidTag)
	case !seen[Grounded] && !seen[Airborne]:
		result = append([]Capability{Grounded}, result...)
	}
	if seen[LandingGear] && !seen[Airborne] {
		return nil, fmt.Errorf("%w: landing_gear requires airborne", ErrInvalidTag)
	}
	return result, nil
}

// ValidateVehicleSpec checks the construction rules for a vehicle
func ValidateVehicleSpec(spec VehicleSpec) error {
	if spec.Registration == "" {
		return fmt.Errorf("%w: vehicle registration is required", ErrInvalidSpec)
	}
	if spec.Capacity < MinCapacity || spec.Capacity > MaxCapacity {
		return fmt.Errorf("%w: capacity of %s must be between %d and %d, got %d",
			ErrInvalidSpec, spec.Registration, MinCapacity, MaxCapacity, spec.Capacity)
	}
	if spec.BoardingRange < 0 {
		return fmt.Errorf("%w: boarding range of %s cannot be negative", ErrInvalidSpec, spec.Registration)
	}
	caps, err := NormalizeCapabilities(spec.Capabilities)
	if err != nil {
		return fmt.Errorf("vehicle %s: %w", spec.Registration, err)
	}
	if !slices.Contains(caps, Airborne) && spec.Position.Z != 0 {
		return fmt.Errorf("%w: grounded vehicle %s cannot spawn at altitude %d",
			ErrOutOfBounds, spec.Registration, spec.Position.Z)
	}
	return nil
}

// SpawnVehicle validates spec and adds the vehicle to the world. Grounded
// vehicles register their cell; airborne vehicles do not touch the grid.
func (w *World) SpawnVehicle(spec VehicleSpec) (*Vehicle, error) {
	if err := ValidateVehicleSpec(spec); err != nil {
		return nil, err
	}
	caps, _ := NormalizeCapabilities(spec.Capabilities)

	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	if w.has(id) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	v := &Vehicle{
		ID:            id,
		Registration:  spec.Registration,
		Make:          spec.Make,
		Model:         spec.Model,
		Colour:        spec.Colour,
		Position:      spec.Position,
		Capacity:      spec.Capacity,
		Capabilities:  caps,
		BoardingRange: spec.BoardingRange,
		Passengers:    []string{},
	}
	if v.Has(Siren) {
		v.Siren = SirenOff
	}
	if v.Has(LandingGear) {
		v.LandingGear = GearDown
	}

	if !v.IsAirborne() {
		if err := w.grid.Register(v.Position, id); err != nil {
			return nil, fmt.Errorf("spawn vehicle %s: %w", v.Registration, err)
		}
	}
	w.vehicles[id] = v
	w.order = append(w.order, id)

	w.emit(Event{
		Type:         EventSpawn,
		OccupantID:   id,
		OccupantName: v.Registration,
		To:           &v.Position,
		Message:      fmt.Sprintf("Vehicle %s appeared at %s", v.Registration, v.Position),
	})
	return v, nil
}

// boardingRange returns the vehicle's own range or the world default
func (w *World) boardingRange(v *Vehicle) float64 {
	if v.BoardingRange > 0 {
		return v.BoardingRange
	}
	return w.opts.BoardingRange
}

// Board puts an NPC into a vehicle. The NPC must be within boarding range
// and a seat must be free. A boarded NPC leaves its grid cell.
//
// Range is measured in three dimensions, altitude included, so an aircraft
// can only be boarded once it is on or near the ground.
func (w *World) Board(vehicleID, npcID string) (*Vehicle, error) {
	v, ok := w.vehicles[vehicleID]
	if !ok {
		return nil, fmt.Errorf("%w: vehicle %s", ErrUnknownOccupant, vehicleID)
	}
	npc, ok := w.npcs[npcID]
	if !ok {
		return nil, fmt.Errorf("%w: NPC %s", ErrUnknownOccupant, npcID)
	}
	if npc.VehicleID != "" {
		return nil, fmt.Errorf("%w: NPC %s is riding vehicle %s", ErrAlreadyAboard, npc.Name, npc.VehicleID)
	}

	if d, limit := Distance(v.Position, npc.Position), w.boardingRange(v); d > limit {
		return nil, fmt.Errorf("%w: NPC %s is %.2f away from vehicle %s (range %.2f)",
			ErrTooFar, npc.Name, d, v.Registration, limit)
	}
	if v.IsFull() {
		return nil, fmt.Errorf("%w: vehicle %s carries %d/%d", ErrVehicleFull, v.Registration, len(v.Passengers), v.Capacity)
	}

	from := npc.Position
	w.grid.Clear(npc.Position, npc.ID)
	v.Passengers = append(v.Passengers, npc.ID)
	npc.VehicleID = v.ID
	npc.Position = v.Position

	w.emit(Event{
		Type:         EventBoard,
		OccupantID:   npc.ID,
		OccupantName: npc.Name,
		VehicleID:    v.ID,
		From:         &from,
		To:           &npc.Position,
		Message:      fmt.Sprintf("NPC %s got on vehicle %s.", npc.Name, v.Registration),
	})
	return v, nil
}

// Disembark lets a passenger out onto the vehicle's ground cell or an empty
// neighbour. If no cell can be found the passenger stays aboard.
func (w *World) Disembark(vehicleID, npcID string) (*NPC, error) {
	v, ok := w.vehicles[vehicleID]
	if !ok {
		return nil, fmt.Errorf("%w: vehicle %s", ErrUnknownOccupant, vehicleID)
	}
	npc, ok := w.npcs[npcID]
	if !ok || !v.HasPassenger(npcID) {
		name := npcID
		if ok {
			name = npc.Name
		}
		return nil, fmt.Errorf("%w: NPC %s is not in vehicle %s", ErrNotAPassenger, name, v.Registration)
	}

	ground := v.Position.Ground()
	occupied, err := w.grid.IsOccupied(ground)
	if err != nil {
		return nil, fmt.Errorf("disembark %s: %w", npc.Name, err)
	}
	landing := ground
	if occupied {
		landing, err = FindNearbyEmpty(w.grid, w.rng, ground, w.opts.SearchRadius, w.opts.MaxPlacementAttempts)
		if err != nil {
			return nil, fmt.Errorf("disembark %s: %w", npc.Name, err)
		}
	}
	if err := w.grid.Register(landing, npc.ID); err != nil {
		return nil, fmt.Errorf("disembark %s: %w", npc.Name, err)
	}

	v.Passengers = slices.DeleteFunc(v.Passengers, func(id string) bool { return id == npcID })
	from := npc.Position
	npc.VehicleID = ""
	npc.Position = landing

	w.emit(Event{
		Type:         EventDisembark,
		OccupantID:   npc.ID,
		OccupantName: npc.Name,
		VehicleID:    v.ID,
		From:         &from,
		To:           &npc.Position,
		Message:      fmt.Sprintf("NPC %s got off vehicle %s.", npc.Name, v.Registration),
	})
	return npc, nil
}

// SetSiren switches an emergency vehicle's siren on or off
func (w *World) SetSiren(vehicleID, state string) (*Vehicle, error) {
	v, ok := w.vehicles[vehicleID]
	if !ok {
		return nil, fmt.Errorf("%w: vehicle %s", ErrUnknownOccupant, vehicleID)
	}
	if !v.Has(Siren) {
		return nil, fmt.Errorf("%w: vehicle %s has no siren", ErrMissingCapability, v.Registration)
	}

	var message string
	switch state {
	case SirenOn:
		message = "Wee Woo Wee Woo"
	case SirenOff:
		message = fmt.Sprintf("Vehicle %s siren off.", v.Registration)
	default:
		return nil, fmt.Errorf("%w: invalid siren action %q, use 'on' or 'off'", ErrInvalidAction, state)
	}

	v.Siren = state
	w.emit(Event{
		Type:         EventSiren,
		OccupantID:   v.ID,
		OccupantName: v.Registration,
		Value:        state,
		Message:      message,
	})
	return v, nil
}

// SetLandingGear raises or lowers an aircraft's landing gear
func (w *World) SetLandingGear(vehicleID, state string) (*Vehicle, error) {
	v, ok := w.vehicles[vehicleID]
	if !ok {
		return nil, fmt.Errorf("%w: vehicle %s", ErrUnknownOccupant, vehicleID)
	}
	if !v.Has(LandingGear) {
		return nil, fmt.Errorf("%w: vehicle %s has no landing gear", ErrMissingCapability, v.Registration)
	}

	var message string
	switch state {
	case GearUp:
		message = fmt.Sprintf("Vehicle %s landing gear retracted.", v.Registration)
	case GearDown:
		message = fmt.Sprintf("Vehicle %s landing gear deployed.", v.Registration)
	default:
		return nil, fmt.Errorf("%w: invalid landing gear action %q, use 'up' or 'down'", ErrInvalidAction, state)
	}

	v.LandingGear = state
	w.emit(Event{
		Type:         EventLandingGear,
		OccupantID:   v.ID,
		OccupantName: v.Registration,
		Value:        state,
		Message:      message,
	})
	return v, nil
}
