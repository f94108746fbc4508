// Command analyze prints quick, human-readable occupancy heuristics about
// the scenarios in a directory (default "scenarios"). It summarizes
// population and density, how far pedestrians start from the nearest
// vehicle, and highlights vehicles with more pedestrians in boarding range
// than seats.
package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/wricardo/mcp-training/openworld/game/config"
	"github.com/wricardo/mcp-training/openworld/game/world"
	"gonum.org/v1/gonum/stat"
)

// Analysis holds the heuristics computed for one scenario
type Analysis struct {
	Name          string
	NPCs          int
	Vehicles      int
	Airborne      int
	OccupiedCells int
	Density       float64 // occupied cells / grid cells

	// Distance from each pedestrian to its nearest grounded vehicle
	MeanNearest   float64
	StdDevNearest float64
	Stranded      []string // NPCs outside boarding range of every vehicle

	BoardingRange float64
	Contested     []Contest
}

// Contest is a grounded vehicle with more NPCs in range than seats
type Contest struct {
	VehicleID string
	Capacity  int
	InRange   int
}

func main() {
	dir := "scenarios"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	scenarios, err := config.NewManager(dir)
	if err != nil {
		fmt.Printf("Error opening scenario directory: %v\n", err)
		os.Exit(1)
	}

	infos, err := scenarios.ListScenarios()
	if err != nil {
		fmt.Printf("Error listing scenarios: %v\n", err)
		os.Exit(1)
	}

	for _, info := range infos {
		fmt.Printf("\n=== Analyzing %s ===\n", info.Filename)
		s, err := scenarios.LoadScenario(info.ScenarioID)
		if err != nil {
			fmt.Printf("Error loading scenario: %v\n", err)
			continue
		}
		a, err := analyzeScenario(s)
		if err != nil {
			fmt.Printf("Error analyzing scenario: %v\n", err)
			continue
		}
		printAnalysis(os.Stdout, a)
	}
}

func analyzeScenario(s *world.Scenario) (*Analysis, error) {
	w, err := world.NewWorldFromScenario(s, world.Options{Seed: 1})
	if err != nil {
		return nil, err
	}

	state := w.State()
	a := &Analysis{
		Name:          state.Name,
		NPCs:          len(state.NPCs),
		Vehicles:      len(state.Vehicles),
		OccupiedCells: state.OccupiedCells,
		Density:       float64(state.OccupiedCells) / float64(state.Width*state.Height),
		BoardingRange: state.BoardingRange,
	}

	var grounded []world.Vehicle
	for _, v := range state.Vehicles {
		if v.IsAirborne() {
			a.Airborne++
			continue
		}
		grounded = append(grounded, v)
	}

	inRange := make(map[string]int)
	var nearest []float64
	for _, npc := range state.NPCs {
		best := math.Inf(1)
		for _, v := range grounded {
			d := world.Distance(npc.Position, v.Position)
			if d < best {
				best = d
			}
			if d <= boardingRange(v, state.BoardingRange) {
				inRange[v.ID]++
			}
		}
		if math.IsInf(best, 1) {
			a.Stranded = append(a.Stranded, npc.ID)
			continue
		}
		nearest = append(nearest, best)
		if best > state.BoardingRange {
			a.Stranded = append(a.Stranded, npc.ID)
		}
	}
	if len(nearest) > 0 {
		a.MeanNearest, a.StdDevNearest = stat.MeanStdDev(nearest, nil)
		if len(nearest) == 1 {
			a.StdDevNearest = 0
		}
	}

	for _, v := range grounded {
		if n := inRange[v.ID]; n > v.Capacity {
			a.Contested = append(a.Contested, Contest{VehicleID: v.ID, Capacity: v.Capacity, InRange: n})
		}
	}
	sort.Strings(a.Stranded)

	return a, nil
}

// boardingRange is the vehicle's own range when set, otherwise the world's
func boardingRange(v world.Vehicle, def float64) float64 {
	if v.BoardingRange > 0 {
		return v.BoardingRange
	}
	return def
}

func printAnalysis(out io.Writer, a *Analysis) {
	fmt.Fprintf(out, "Name: %s\n", a.Name)
	fmt.Fprintf(out, "NPCs: %d\n", a.NPCs)
	fmt.Fprintf(out, "Vehicles: %d (%d airborne)\n", a.Vehicles, a.Airborne)
	fmt.Fprintf(out, "Occupied cells: %d (%.2f%% of the grid)\n", a.OccupiedCells, a.Density*100)
	fmt.Fprintf(out, "Nearest vehicle: mean %.1f, stddev %.1f\n", a.MeanNearest, a.StdDevNearest)

	if len(a.Stranded) > 0 {
		fmt.Fprintf(out, "⚠️  %d NPCs start outside boarding range (%.1f) of every vehicle\n", len(a.Stranded), a.BoardingRange)
		for i, id := range a.Stranded {
			if i < 5 {
				fmt.Fprintf(out, "   Stranded: %s\n", id)
			}
		}
		if len(a.Stranded) > 5 {
			fmt.Fprintf(out, "   ... and %d more\n", len(a.Stranded)-5)
		}
	} else {
		fmt.Fprintf(out, "✅ Every NPC starts within boarding range of a vehicle\n")
	}

	if len(a.Contested) > 0 {
		for _, c := range a.Contested {
			fmt.Fprintf(out, "⚠️  Vehicle %s has %d NPCs in range for %d seats\n", c.VehicleID, c.InRange, c.Capacity)
		}
	} else {
		fmt.Fprintf(out, "✅ No vehicle is oversubscribed\n")
	}
}
