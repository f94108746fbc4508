package world

import (
	"encoding/json"
	"fmt"
	"os"
)

// Scenario describes the initial population of a world, loaded from JSON
type Scenario struct {
	Name                 string        `json:"name"`
	Description          string        `json:"description"`
	Seed                 int64         `json:"seed,omitempty"`
	BoardingRange        float64       `json:"boarding_range,omitempty"`
	SearchRadius         int           `json:"search_radius,omitempty"`
	MaxPlacementAttempts int           `json:"max_placement_attempts,omitempty"`
	NPCs                 []NPCSpec     `json:"npcs"`
	Vehicles             []VehicleSpec `json:"vehicles"`
}

// ValidateScenario validates a scenario for correctness: required fields,
// valid occupant specs, in-bounds and non-overlapping ground placements
// and unique IDs.
func ValidateScenario(s *Scenario) error {
	if s == nil {
		return fmt.Errorf("scenario validation: scenario cannot be nil")
	}
	if s.Name == "" {
		return fmt.Errorf("scenario validation: name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("scenario validation: description is required")
	}
	if s.BoardingRange < 0 {
		return fmt.Errorf("scenario validation: boarding_range cannot be negative, got %v", s.BoardingRange)
	}
	if s.SearchRadius < 0 || s.SearchRadius > MapSize {
		return fmt.Errorf("scenario validation: search_radius must be between 0 and %d, got %d", MapSize, s.SearchRadius)
	}
	if s.MaxPlacementAttempts < 0 {
		return fmt.Errorf("scenario validation: max_placement_attempts cannot be negative, got %d", s.MaxPlacementAttempts)
	}

	grid := NewGrid(MapSize, MapSize)
	ids := make(map[string]bool)
	claim := func(id, label string) error {
		if id == "" {
			return nil
		}
		if ids[id] {
			return fmt.Errorf("scenario validation: %s: %w: %s", label, ErrDuplicateID, id)
		}
		ids[id] = true
		return nil
	}

	for i, spec := range s.NPCs {
		label := fmt.Sprintf("npc %d (%s)", i+1, spec.Name)
		if err := ValidateNPCSpec(spec); err != nil {
			return fmt.Errorf("scenario validation: %s: %w", label, err)
		}
		if err := claim(spec.ID, label); err != nil {
			return err
		}
		if err := grid.Register(spec.Position, label); err != nil {
			return fmt.Errorf("scenario validation: %s: %w", label, err)
		}
	}

	for i, spec := range s.Vehicles {
		label := fmt.Sprintf("vehicle %d (%s)", i+1, spec.Registration)
		if err := ValidateVehicleSpec(spec); err != nil {
			return fmt.Errorf("scenario validation: %s: %w", label, err)
		}
		if err := claim(spec.ID, label); err != nil {
			return err
		}
		caps, _ := NormalizeCapabilities(spec.Capabilities)
		airborne := false
		for _, c := range caps {
			airborne = airborne || c == Airborne
		}
		if airborne {
			continue
		}
		if err := grid.Register(spec.Position, label); err != nil {
			return fmt.Errorf("scenario validation: %s: %w", label, err)
		}
	}

	return nil
}

// NewWorldFromScenario validates s and builds a populated world. opts
// supplies the random source and clock; a scenario seed overrides opts.Seed.
func NewWorldFromScenario(s *Scenario, opts Options) (*World, error) {
	if err := ValidateScenario(s); err != nil {
		return nil, err
	}

	opts.Name = s.Name
	if s.Seed != 0 {
		opts.Seed = s.Seed
	}
	if s.BoardingRange > 0 {
		opts.BoardingRange = s.BoardingRange
	}
	if s.SearchRadius > 0 {
		opts.SearchRadius = s.SearchRadius
	}
	if s.MaxPlacementAttempts > 0 {
		opts.MaxPlacementAttempts = s.MaxPlacementAttempts
	}

	w := New(opts)
	for _, spec := range s.NPCs {
		if _, err := w.SpawnNPC(spec); err != nil {
			return nil, err
		}
	}
	for _, spec := range s.Vehicles {
		if _, err := w.SpawnVehicle(spec); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// LoadScenarioFile reads and validates a scenario JSON file
func LoadScenarioFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	if err := ValidateScenario(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DefaultScenario returns the built-in demo population: three pedestrians,
// a Volvo, a Boeing 747 and an ambulance.
func DefaultScenario() *Scenario {
	return &Scenario{
		Name:        "demo",
		Description: "Three NPCs, a car, a plane and an ambulance on a 100x100 map",
		NPCs: []NPCSpec{
			{ID: "john", Name: "John Doe", Gender: "male", Appearance: "casual", Age: Adult, Position: Pos(10, 20)},
			{ID: "jane", Name: "Jane Smith", Gender: "female", Appearance: "business", Age: Adult, Position: Pos(50, 30)},
			{ID: "bob", Name: "Bob Jones", Gender: "male", Appearance: PoliceAppearance, Age: Adult, Position: Pos(80, 70)},
		},
		Vehicles: []VehicleSpec{
			{ID: "abc-123", Registration: "ABC-123", Make: "Volvo", Model: "XC90", Colour: "Red",
				Position: Pos(10, 15), Capacity: 5},
			{ID: "g-boac", Registration: "G-BOAC", Make: "Boeing", Model: "747", Colour: "White",
				Position: Position{X: 100, Y: 50, Z: 10000}, Capacity: 500,
				Capabilities: []Capability{Airborne, LandingGear}},
			{ID: "345-abc", Registration: "345-ABC", Make: "Ford", Model: "Explorer", Colour: "ambulance",
				Position: Pos(50, 50), Capacity: 2, Capabilities: []Capability{Grounded, Siren}},
		},
	}
}
