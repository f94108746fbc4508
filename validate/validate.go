// Command validate checks the scenario JSON files in a directory (default
// ../scenarios). For each file it reports:
//   - JSON structure and required fields
//   - NPC and vehicle specs (appearance, age, mood, capacity, capabilities)
//   - Overlapping ground placements and duplicate IDs
//   - Crowding: occupants whose neighbourhood has no free cell, so a move
//     onto them can never be redirected
//   - Boarding: pedestrians that start within boarding range of a vehicle
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/openworld/game/world"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) note(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateScenario loads and validates a single scenario file
func validateScenario(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var s world.Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if s.Name == "" {
		result.fail("Missing required field: name")
	}
	if s.Description == "" {
		result.fail("Missing required field: description")
	}
	if len(s.NPCs)+len(s.Vehicles) == 0 {
		result.fail("Scenario has no NPCs or vehicles")
	}

	// Per-occupant checks report every bad spec, not just the first
	for i, spec := range s.NPCs {
		if err := world.ValidateNPCSpec(spec); err != nil {
			result.fail("NPC %d (%s): %v", i+1, spec.Name, err)
		}
	}
	for i, spec := range s.Vehicles {
		if err := world.ValidateVehicleSpec(spec); err != nil {
			result.fail("Vehicle %d (%s): %v", i+1, spec.Registration, err)
		}
	}

	if !result.Valid {
		return result
	}

	// Placement, IDs and tuning values
	if err := world.ValidateScenario(&s); err != nil {
		result.fail("%v", err)
		return result
	}

	w, err := world.NewWorldFromScenario(&s, world.Options{Seed: 1})
	if err != nil {
		result.fail("Failed to build world: %v", err)
		return result
	}

	crowded := findCrowded(w, s.SearchRadius)
	for _, msg := range crowded {
		result.fail("Crowded: %s", msg)
	}

	if result.Valid {
		state := w.State()
		result.note("✓ Name: %s", s.Name)
		result.note("✓ Grid: %dx%d", state.Width, state.Height)
		result.note("✓ NPCs: %d", len(state.NPCs))
		result.note("✓ Vehicles: %d (%d airborne)", len(state.Vehicles), countAirborne(w))
		result.note("✓ Occupied cells: %d", state.OccupiedCells)
		result.note("✓ Boarding: %d NPCs start within %.1f of a vehicle", countBoardable(w), w.BoardingRange())
	}

	return result
}

// findCrowded lists grounded occupants with no free cell in their search
// neighbourhood
func findCrowded(w *world.World, radius int) []string {
	if radius < 1 {
		radius = world.DefaultSearchRadius
	}
	rng := rand.New(rand.NewSource(1))

	var crowded []string
	for pos, id := range w.Grid().Occupied() {
		if _, err := world.FindNearbyEmpty(w.Grid(), rng, pos, radius, 0); err != nil {
			crowded = append(crowded, fmt.Sprintf("%s at %s has no free cell within radius %d", id, pos, radius))
		}
	}
	return crowded
}

func countAirborne(w *world.World) int {
	n := 0
	for _, v := range w.Vehicles() {
		if v.IsAirborne() {
			n++
		}
	}
	return n
}

// countBoardable counts NPCs within boarding range of at least one
// grounded vehicle
func countBoardable(w *world.World) int {
	n := 0
	for _, npc := range w.NPCs() {
		for _, v := range w.Vehicles() {
			if v.IsAirborne() {
				continue
			}
			if world.Distance(npc.Position, v.Position) <= w.BoardingRange() {
				n++
				break
			}
		}
	}
	return n
}

// main validates every *.json file in the directory given as the first
// argument, printing a concise report and exiting non-zero if any is invalid.
func main() {
	scenarioDir := "../scenarios"
	if len(os.Args) > 1 {
		scenarioDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(scenarioDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding scenario files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No scenario files found in %s\n", scenarioDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateScenario(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All scenarios are valid!")
	} else {
		fmt.Println("❌ Some scenarios have errors")
		os.Exit(1)
	}
}
