package world

import (
	"fmt"
	"math/rand"
	"time"
)

// Options tunes a world. Zero values select the defaults.
type Options struct {
	Name                 string
	Seed                 int64 // 0 seeds from the clock
	BoardingRange        float64
	SearchRadius         int
	MaxPlacementAttempts int
	Rand                 *rand.Rand       // overrides Seed when set
	Clock                func() time.Time // event timestamps, defaults to time.Now
}

func (o Options) withDefaults() Options {
	if o.BoardingRange <= 0 {
		o.BoardingRange = DefaultBoardingRange
	}
	if o.SearchRadius < 1 {
		o.SearchRadius = DefaultSearchRadius
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// World owns the grid and every occupant on it. A World is not safe for
// concurrent use; callers serialise access.
type World struct {
	grid      *Grid
	opts      Options
	rng       *rand.Rand
	now       func() time.Time
	npcs      map[string]*NPC
	vehicles  map[string]*Vehicle
	order     []string // spawn order
	events    []Event
	listeners []Listener
}

// New creates an empty MapSize x MapSize world
func New(opts Options) *World {
	return newWorld(NewGrid(MapSize, MapSize), opts)
}

func newWorld(grid *Grid, opts Options) *World {
	opts = opts.withDefaults()
	rng := opts.Rand
	if rng == nil {
		seed := opts.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	return &World{
		grid:     grid,
		opts:     opts,
		rng:      rng,
		now:      opts.Clock,
		npcs:     make(map[string]*NPC),
		vehicles: make(map[string]*Vehicle),
	}
}

// Name returns the scenario name the world was built from
func (w *World) Name() string { return w.opts.Name }

// Grid returns the occupancy index. Callers must not mutate it.
func (w *World) Grid() *Grid { return w.grid }

// BoardingRange returns the default boarding range
func (w *World) BoardingRange() float64 { return w.opts.BoardingRange }

// Register places an occupant ID on the grid directly
func (w *World) Register(p Position, id string) error {
	return w.grid.Register(p, id)
}

// IsOccupied reports whether the cell at p holds an occupant
func (w *World) IsOccupied(p Position) (bool, error) {
	return w.grid.IsOccupied(p)
}

// FindNearbyEmpty searches the neighbourhood of target using the world's
// random source and placement limits
func (w *World) FindNearbyEmpty(target Position, radius int) (Position, error) {
	return FindNearbyEmpty(w.grid, w.rng, target, radius, w.opts.MaxPlacementAttempts)
}

// NPC returns the NPC with the given ID
func (w *World) NPC(id string) (*NPC, bool) {
	npc, ok := w.npcs[id]
	return npc, ok
}

// Vehicle returns the vehicle with the given ID
func (w *World) Vehicle(id string) (*Vehicle, bool) {
	v, ok := w.vehicles[id]
	return v, ok
}

// NPCs returns every NPC in spawn order
func (w *World) NPCs() []*NPC {
	result := make([]*NPC, 0, len(w.npcs))
	for _, id := range w.order {
		if npc, ok := w.npcs[id]; ok {
			result = append(result, npc)
		}
	}
	return result
}

// Vehicles returns every vehicle in spawn order
func (w *World) Vehicles() []*Vehicle {
	result := make([]*Vehicle, 0, len(w.vehicles))
	for _, id := range w.order {
		if v, ok := w.vehicles[id]; ok {
			result = append(result, v)
		}
	}
	return result
}

// CellInfo describes a single grid cell
type CellInfo struct {
	Position     Position     `json:"position"`
	Occupied     bool         `json:"occupied"`
	OccupantID   string       `json:"occupant_id,omitempty"`
	OccupantKind OccupantKind `json:"occupant_kind,omitempty"`
	OccupantName string       `json:"occupant_name,omitempty"`
}

// DescribeCell reports what occupies the cell at p
func (w *World) DescribeCell(p Position) (*CellInfo, error) {
	id, err := w.grid.OccupantAt(p)
	if err != nil {
		return nil, err
	}
	info := &CellInfo{Position: p.Ground(), Occupied: id != "", OccupantID: id}
	if npc, ok := w.npcs[id]; ok {
		info.OccupantKind = KindNPC
		info.OccupantName = npc.Name
	} else if v, ok := w.vehicles[id]; ok {
		info.OccupantKind = KindVehicle
		info.OccupantName = v.Registration
	}
	return info, nil
}

// PositionOf returns the current position of any occupant
func (w *World) PositionOf(id string) (Position, error) {
	if npc, ok := w.npcs[id]; ok {
		return npc.Position, nil
	}
	if v, ok := w.vehicles[id]; ok {
		return v.Position, nil
	}
	return Position{}, fmt.Errorf("%w: %s", ErrUnknownOccupant, id)
}

func (w *World) has(id string) bool {
	_, npc := w.npcs[id]
	_, vehicle := w.vehicles[id]
	return npc || vehicle
}
