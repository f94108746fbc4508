// Package world provides the spatial occupancy model for the open world server.
//
// The world package implements:
//   - A fixed-size grid mapping integer cells to at most one occupant
//   - NPCs with appearance, age and mood tags
//   - Vehicles specialised by capability tags instead of subtypes
//   - Collision-avoiding movement with a bounded randomized neighbour search
//   - Passenger boarding and disembarking
//   - An event log observable by listeners
//   - Snapshots and scenario loading
//
// Core Types:
//
// World owns the Grid and every occupant. Grid is a derived index that holds
// occupant IDs keyed by coordinate; occupants own their positions and the
// World keeps both consistent after every operation. WorldState is the
// serialisable snapshot used for persistence, and Scenario describes the
// initial population of a world.
//
// Usage:
//
//	w := world.New(world.Options{Seed: 42})
//
//	npc, err := w.SpawnNPC(world.NPCSpec{
//		Name: "John Doe", Appearance: "casual", Age: world.Adult,
//		Position: world.Pos(10, 20),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := w.Move(npc.ID, world.Pos(30, 50), 1)
//
// Capabilities:
//
// A vehicle is either grounded or airborne. Grounded vehicles occupy a grid
// cell and obey the same collision rules as NPCs. Airborne vehicles carry a
// 3D position, are never indexed on the grid and skip occupancy checks.
// The siren and landing_gear capabilities enable the matching toggles.
//
// Errors:
//
// Every failed operation returns one of the sentinel errors declared in
// errors.go, wrapped with context. ErrorCode maps them to stable codes.
// A failed operation never leaves the world in a partially applied state.
package world
