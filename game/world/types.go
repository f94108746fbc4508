package world

import "fmt"

const (
	// MapSize is the width and height of every world grid.
	MapSize = 100

	DefaultBoardingRange = 5.0
	DefaultSearchRadius  = 1
	MinCapacity          = 1
	MaxCapacity          = 1000
)

// Position is a grid coordinate. Z is only meaningful for airborne vehicles.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z,omitempty"`
}

// Pos returns a ground position.
func Pos(x, y int) Position {
	return Position{X: x, Y: y}
}

// Ground drops the altitude component.
func (p Position) Ground() Position {
	return Position{X: p.X, Y: p.Y}
}

func (p Position) String() string {
	if p.Z != 0 {
		return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
	}
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Age tags an NPC's age group
type Age string

const (
	Minor  Age = "minor"
	Adult  Age = "adult"
	Senior Age = "senior"
)

// Valid reports whether a is a known age tag
func (a Age) Valid() bool {
	switch a {
	case Minor, Adult, Senior:
		return true
	}
	return false
}

// Mood is the state of an NPC's mood state machine
type Mood string

const (
	Relaxed Mood = "relaxed"
	Nervous Mood = "nervous"
	Angry   Mood = "angry"
	Attack  Mood = "attack"
)

// Valid reports whether m is a known mood
func (m Mood) Valid() bool {
	switch m {
	case Relaxed, Nervous, Angry, Attack:
		return true
	}
	return false
}

// PoliceAppearance is the appearance tag restricted to adults.
const PoliceAppearance = "police"

// Capability enables optional vehicle behaviour
type Capability string

const (
	Grounded    Capability = "grounded"
	Airborne    Capability = "airborne"
	Siren       Capability = "siren"
	LandingGear Capability = "landing_gear"
)

// Gait classifies a move by speed
type Gait string

const (
	Walking Gait = "walking"
	Running Gait = "running"
)

// GaitForSpeed returns walking for speed 1 and running for anything faster.
func GaitForSpeed(speed int) Gait {
	if speed > 1 {
		return Running
	}
	return Walking
}

// Toggle states for sirens and landing gear
const (
	SirenOn  = "on"
	SirenOff = "off"
	GearUp   = "up"
	GearDown = "down"
)

// OccupantKind distinguishes NPCs from vehicles
type OccupantKind string

const (
	KindNPC     OccupantKind = "npc"
	KindVehicle OccupantKind = "vehicle"
)
