package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/wricardo/mcp-training/openworld/game/world"
)

// demoStep is one scripted action. A failing step is reported and the
// script carries on.
type demoStep struct {
	name string
	run  func(w *world.World) error
}

func demoScript() []demoStep {
	move := func(id string, to world.Position) func(*world.World) error {
		return func(w *world.World) error {
			_, err := w.Move(id, to, 1)
			return err
		}
	}
	alert := func(id string) func(*world.World) error {
		return func(w *world.World) error {
			_, err := w.Alert(id)
			return err
		}
	}
	board := func(vehicleID, npcID string) func(*world.World) error {
		return func(w *world.World) error {
			_, err := w.Board(vehicleID, npcID)
			return err
		}
	}

	return []demoStep{
		{"John walks to (30, 50)", move("john", world.Pos(30, 50))},
		{"Jane walks to (20, 40)", move("jane", world.Pos(20, 40))},
		{"John is alerted", alert("john")},
		{"Bob is alerted", alert("bob")},
		{"John gets into the Volvo", board("abc-123", "john")},
		{"Jane gets into the Volvo", board("abc-123", "jane")},
		{"The Volvo drives to (50, 80)", move("abc-123", world.Pos(50, 80))},
		{"John gets out of the Volvo", func(w *world.World) error {
			_, err := w.Disembark("abc-123", "john")
			return err
		}},
		{"The 747 retracts its landing gear", func(w *world.World) error {
			_, err := w.SetLandingGear("g-boac", world.GearUp)
			return err
		}},
		{"The 747 climbs to (200, 100, 15000)", move("g-boac", world.Position{X: 200, Y: 100, Z: 15000})},
		{"The ambulance turns its siren on", func(w *world.World) error {
			_, err := w.SetSiren("345-abc", world.SirenOn)
			return err
		}},
		{"A second John Doe appears at (48, 48)", func(w *world.World) error {
			_, err := w.SpawnNPC(world.NPCSpec{
				ID: "john-2", Name: "John Doe", Gender: "male", Appearance: "casual",
				Age: world.Adult, Position: world.Pos(48, 48),
			})
			return err
		}},
		{"The second John Doe gets into the ambulance", board("345-abc", "john-2")},
	}
}

// runDemo plays the walkthrough on the built-in scenario and writes every
// event and failure to out.
func runDemo(out io.Writer, seed int64) error {
	w, err := world.NewWorldFromScenario(world.DefaultScenario(), world.Options{Seed: seed})
	if err != nil {
		return fmt.Errorf("failed to build demo world: %w", err)
	}

	w.Subscribe(world.ListenerFunc(func(e world.Event) {
		fmt.Fprintf(out, "  %s\n", e.Message)
	}))

	failed := 0
	for i, step := range demoScript() {
		fmt.Fprintf(out, "%2d. %s\n", i+1, step.name)
		if err := step.run(w); err != nil {
			failed++
			fmt.Fprintf(out, "  ✗ %v (%s)\n", err, world.ErrorCode(err))
		}
	}

	state, err := json.MarshalIndent(w.State(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode final state: %w", err)
	}
	fmt.Fprintf(out, "\n%d steps, %d failed. Final state:\n%s\n", len(demoScript()), failed, state)
	return nil
}
