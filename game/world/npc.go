package world

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NPC is a non-player character
type NPC struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Gender     string   `json:"gender,omitempty"`
	Appearance string   `json:"appearance"`
	Age        Age      `json:"age"`
	Position   Position `json:"position"`
	Mood       Mood     `json:"mood"`
	VehicleID  string   `json:"vehicle_id,omitempty"` // set while riding a vehicle
}

// NPCSpec describes an NPC to spawn
type NPCSpec struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name"`
	Gender     string   `json:"gender,omitempty"`
	Appearance string   `json:"appearance"`
	Age        Age      `json:"age"`
	Position   Position `json:"position"`
	Mood       Mood     `json:"mood,omitempty"`
}

// IsPolice reports whether the NPC wears the police appearance
func (n *NPC) IsPolice() bool {
	return strings.EqualFold(n.Appearance, PoliceAppearance)
}

// ValidateNPCSpec checks the construction rules for an NPC. Only adults may
// have the police appearance.
func ValidateNPCSpec(spec NPCSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: NPC name is required", ErrInvalidSpec)
	}
	if !spec.Age.Valid() {
		return fmt.Errorf("%w: unknown age %q for NPC %s", ErrInvalidTag, spec.Age, spec.Name)
	}
	if spec.Mood != "" && !spec.Mood.Valid() {
		return fmt.Errorf("%w: unknown mood %q for NPC %s", ErrInvalidTag, spec.Mood, spec.Name)
	}
	if strings.EqualFold(spec.Appearance, PoliceAppearance) && spec.Age != Adult {
		return fmt.Errorf("%w: only adult NPCs can have the police appearance (%s is %s)",
			ErrInvalidAppearance, spec.Name, spec.Age)
	}
	if spec.Position.Z != 0 {
		return fmt.Errorf("%w: NPC %s cannot spawn at altitude %d", ErrOutOfBounds, spec.Name, spec.Position.Z)
	}
	return nil
}

// SpawnNPC validates spec, registers the NPC's cell and adds it to the world
func (w *World) SpawnNPC(spec NPCSpec) (*NPC, error) {
	if err := ValidateNPCSpec(spec); err != nil {
		return nil, err
	}

	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	if w.has(id) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	if err := w.grid.Register(spec.Position, id); err != nil {
		return nil, fmt.Errorf("spawn NPC %s: %w", spec.Name, err)
	}

	mood := spec.Mood
	if mood == "" {
		mood = Relaxed
	}
	npc := &NPC{
		ID:         id,
		Name:       spec.Name,
		Gender:     spec.Gender,
		Appearance: spec.Appearance,
		Age:        spec.Age,
		Position:   spec.Position,
		Mood:       mood,
	}
	w.npcs[id] = npc
	w.order = append(w.order, id)

	w.emit(Event{
		Type:         EventSpawn,
		OccupantID:   id,
		OccupantName: npc.Name,
		To:           &npc.Position,
		Message:      fmt.Sprintf("NPC %s appeared at %s", npc.Name, npc.Position),
	})
	return npc, nil
}

// ChangeMood sets an NPC's mood directly
func (w *World) ChangeMood(id string, mood Mood) (*NPC, error) {
	npc, ok := w.npcs[id]
	if !ok {
		return nil, fmt.Errorf("%w: NPC %s", ErrUnknownOccupant, id)
	}
	if !mood.Valid() {
		return nil, fmt.Errorf("%w: unknown mood %q", ErrInvalidTag, mood)
	}

	npc.Mood = mood
	w.emit(Event{
		Type:         EventMood,
		OccupantID:   id,
		OccupantName: npc.Name,
		Value:        string(mood),
		Message:      fmt.Sprintf("NPC %s is now in %s mood", npc.Name, mood),
	})
	return npc, nil
}

// Alert startles an NPC. Police always switch to attack; everyone else
// becomes nervous or attacks with equal probability.
func (w *World) Alert(id string) (*NPC, error) {
	npc, ok := w.npcs[id]
	if !ok {
		return nil, fmt.Errorf("%w: NPC %s", ErrUnknownOccupant, id)
	}

	mood := Attack
	if !npc.IsPolice() && w.rng.Intn(2) == 0 {
		mood = Nervous
	}
	return w.ChangeMood(id, mood)
}
