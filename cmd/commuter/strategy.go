package main

import (
	"math"
	"sort"

	"github.com/wricardo/mcp-training/openworld/game/world"
)

// Action kinds
const (
	ActionMove      = "move"
	ActionBoard     = "board"
	ActionDrive     = "drive"
	ActionDisembark = "disembark"
)

// Action is the next request the commuter sends
type Action struct {
	Kind      string
	ActorID   string // mover, or boarding/leaving NPC
	VehicleID string
	To        world.Position
	Speed     int
}

// RideStrategy assigns every pedestrian a seat in the nearest grounded
// vehicle with room, walks them over, boards them, then drives each full
// (or fully assigned) vehicle to the destination and lets everyone out.
type RideStrategy struct {
	destination world.Position
	stride      int

	assignments map[string]string // NPC -> vehicle
	order       []string          // NPCs in assignment order
	driven      map[string]bool
	delivered   map[string]bool
	stranded    map[string]bool // vehicles whose drive or unloading was rejected
	unassigned  []string        // NPCs left without a seat
}

// NewRideStrategy plans seat assignments from the initial state. stride is
// the largest per-axis step a pedestrian takes per move; strides above one
// are run rather than walked.
func NewRideStrategy(state *world.WorldState, destination world.Position, stride int) *RideStrategy {
	if stride < 1 {
		stride = 1
	}
	s := &RideStrategy{
		destination: destination,
		stride:      stride,
	}
	s.plan(state)
	return s
}

// plan gives each grounded pedestrian, in ID order, the nearest grounded
// vehicle that still has a free seat
func (s *RideStrategy) plan(state *world.WorldState) {
	s.assignments = make(map[string]string)
	s.order = nil
	s.driven = make(map[string]bool)
	s.delivered = make(map[string]bool)
	s.stranded = make(map[string]bool)
	s.unassigned = nil

	seats := make(map[string]int)
	var vehicles []world.Vehicle
	for _, v := range state.Vehicles {
		if v.IsAirborne() {
			continue
		}
		seats[v.ID] = v.Capacity - len(v.Passengers)
		vehicles = append(vehicles, v)
	}

	npcs := append([]world.NPC(nil), state.NPCs...)
	sort.Slice(npcs, func(i, j int) bool { return npcs[i].ID < npcs[j].ID })

	for _, npc := range npcs {
		if npc.VehicleID != "" {
			continue
		}
		best, bestDist := "", math.Inf(1)
		for _, v := range vehicles {
			if seats[v.ID] <= 0 {
				continue
			}
			if d := world.Distance(npc.Position, v.Position); d < bestDist {
				best, bestDist = v.ID, d
			}
		}
		if best == "" {
			s.unassigned = append(s.unassigned, npc.ID)
			continue
		}
		seats[best]--
		s.assignments[npc.ID] = best
		s.order = append(s.order, npc.ID)
	}
}

// Reset replans from a fresh state
func (s *RideStrategy) Reset(state *world.WorldState) {
	s.plan(state)
}

// Assignments returns a copy of the NPC to vehicle plan
func (s *RideStrategy) Assignments() map[string]string {
	out := make(map[string]string, len(s.assignments))
	for k, v := range s.assignments {
		out[k] = v
	}
	return out
}

// Unassigned lists pedestrians no vehicle had room for
func (s *RideStrategy) Unassigned() []string {
	return append([]string(nil), s.unassigned...)
}

// Done reports whether every assigned NPC has been delivered
func (s *RideStrategy) Done() bool {
	return len(s.delivered) == len(s.order)
}

// Stranded lists vehicles the strategy gave up on
func (s *RideStrategy) Stranded() []string {
	var out []string
	for _, vid := range s.vehicleOrder() {
		if s.stranded[vid] {
			out = append(out, vid)
		}
	}
	return out
}

// RecordResult tells the strategy whether an action it produced succeeded.
// A vehicle only counts as driven, and a passenger as delivered, once the
// server accepts the request. A rejected drive or disembark strands the
// vehicle with whoever is still aboard.
func (s *RideStrategy) RecordResult(a *Action, success bool) {
	switch a.Kind {
	case ActionDrive:
		if success {
			s.driven[a.ActorID] = true
		} else {
			s.stranded[a.ActorID] = true
		}
	case ActionDisembark:
		if success {
			s.delivered[a.ActorID] = true
		} else {
			s.stranded[a.VehicleID] = true
		}
	}
}

// NextAction returns the next step towards delivering everyone, or nil
// when there is nothing left to do.
func (s *RideStrategy) NextAction(state *world.WorldState) *Action {
	npcs := make(map[string]world.NPC, len(state.NPCs))
	for _, n := range state.NPCs {
		npcs[n.ID] = n
	}
	vehicles := make(map[string]world.Vehicle, len(state.Vehicles))
	for _, v := range state.Vehicles {
		vehicles[v.ID] = v
	}

	// Pedestrians first: walk to the assigned vehicle, then board
	for _, id := range s.order {
		vid := s.assignments[id]
		if s.delivered[id] || s.driven[vid] || s.stranded[vid] {
			continue
		}
		npc, ok := npcs[id]
		v, vok := vehicles[vid]
		if !ok || !vok {
			s.delivered[id] = true
			continue
		}
		if npc.VehicleID != "" {
			continue
		}
		if world.Distance(npc.Position, v.Position) <= boardingRange(v, state.BoardingRange) {
			return &Action{Kind: ActionBoard, ActorID: id, VehicleID: v.ID}
		}
		step := s.stepToward(npc.Position, v.Position)
		return &Action{Kind: ActionMove, ActorID: id, To: step, Speed: s.speed()}
	}

	// Everyone aboard: drive each vehicle once, then unload it
	for _, vid := range s.vehicleOrder() {
		v, ok := vehicles[vid]
		if !ok || s.stranded[vid] {
			continue
		}
		if !s.driven[vid] {
			return &Action{Kind: ActionDrive, ActorID: vid, To: s.destination, Speed: 2}
		}
		for _, pid := range v.Passengers {
			if s.assignments[pid] != vid || s.delivered[pid] {
				continue
			}
			return &Action{Kind: ActionDisembark, ActorID: pid, VehicleID: vid}
		}
	}

	return nil
}

// vehicleOrder lists assigned vehicles in the order their first passenger
// was planned
func (s *RideStrategy) vehicleOrder() []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range s.order {
		vid := s.assignments[id]
		if !seen[vid] {
			seen[vid] = true
			out = append(out, vid)
		}
	}
	return out
}

func (s *RideStrategy) stepToward(from, to world.Position) world.Position {
	return world.Position{
		X: from.X + clamp(to.X-from.X, s.stride),
		Y: from.Y + clamp(to.Y-from.Y, s.stride),
	}
}

func (s *RideStrategy) speed() int {
	if s.stride > 1 {
		return 2
	}
	return 1
}

func clamp(d, limit int) int {
	if d > limit {
		return limit
	}
	if d < -limit {
		return -limit
	}
	return d
}

// boardingRange is the vehicle's own range when set, otherwise the world's
func boardingRange(v world.Vehicle, def float64) float64 {
	if v.BoardingRange > 0 {
		return v.BoardingRange
	}
	return def
}
