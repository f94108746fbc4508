// Command commuter is a bot that plays a session over the REST API: it
// walks every pedestrian to a vehicle with a free seat, boards them, drives
// the vehicles to a destination and lets everyone out.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/openworld/game/world"
	"github.com/wricardo/mcp-training/openworld/logging"
)

const sessionFile = ".session"

// RunStats summarizes one run of the strategy
type RunStats struct {
	Actions   int
	Failures  int
	Redirects int
	Delivered bool
}

func main() {
	cmd := &cli.Command{
		Name:  "commuter",
		Usage: "deliver every pedestrian to a destination by vehicle",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "world server URL"},
			&cli.StringFlag{Name: "scenario", Usage: "scenario for a new session (default scenario when empty)"},
			&cli.StringFlag{Name: "continue", Usage: "resume an existing session by ID"},
			&cli.IntFlag{Name: "dest-x", Value: 60, Usage: "destination X"},
			&cli.IntFlag{Name: "dest-y", Value: 90, Usage: "destination Y"},
			&cli.IntFlag{Name: "stride", Value: 1, Usage: "largest per-axis step a pedestrian takes per move"},
			&cli.IntFlag{Name: "max-actions", Value: 2000, Usage: "maximum actions per run"},
			&cli.DurationFlag{Name: "delay", Usage: "delay between actions"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log every action"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "commuter: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := "info"
	if cmd.Bool("verbose") {
		level = "debug"
	}
	logger := logging.Stderr(level)

	destination := world.Pos(cmd.Int("dest-x"), cmd.Int("dest-y"))
	if !world.NewGrid(world.MapSize, world.MapSize).InBounds(destination) {
		return fmt.Errorf("destination %s is outside the %dx%d map", destination, world.MapSize, world.MapSize)
	}

	client := NewClient(cmd.String("url"))
	logger.Info().Str("url", cmd.String("url")).Msg("connecting to world server")

	state, err := openSession(client, cmd.String("continue"), cmd.String("scenario"), logger)
	if err != nil {
		return err
	}

	// Start every run from the scenario's initial population
	if state, err = client.Reset(); err != nil {
		return err
	}

	strategy := NewRideStrategy(state, destination, cmd.Int("stride"))
	logger.Info().
		Int("passengers", len(strategy.Assignments())).
		Strs("unassigned", strategy.Unassigned()).
		Msg("seats planned")

	stats, err := drive(ctx, client, strategy, state, cmd.Int("max-actions"), cmd.Duration("delay"), logger)
	if err != nil {
		return err
	}

	logger.Info().
		Str("session", client.SessionID()).
		Int("actions", stats.Actions).
		Int("failures", stats.Failures).
		Int("redirects", stats.Redirects).
		Bool("delivered", stats.Delivered).
		Strs("stranded", strategy.Stranded()).
		Msg("run finished")

	if !stats.Delivered {
		return fmt.Errorf("gave up after %d actions", stats.Actions)
	}
	return nil
}

// openSession resumes the requested or saved session, falling back to a
// new one. The session ID is saved for the next run.
func openSession(client *Client, resumeID, scenario string, logger zerolog.Logger) (*world.WorldState, error) {
	if resumeID == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			resumeID = string(bytes.TrimSpace(data))
		}
	}

	if resumeID != "" {
		state, err := client.Resume(resumeID)
		if err == nil {
			logger.Info().Str("session", resumeID).Msg("resumed session")
			return state, nil
		}
		logger.Warn().Err(err).Str("session", resumeID).Msg("failed to resume session, creating a new one")
	}

	state, err := client.CreateSession(scenario)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("session", client.SessionID()).Str("world", state.Name).Msg("session created")

	if err := os.WriteFile(sessionFile, []byte(client.SessionID()), 0644); err != nil {
		logger.Warn().Err(err).Msg("failed to save session ID")
	}
	return state, nil
}

// drive executes strategy actions until it has nothing left to do, the
// action budget runs out or ctx is cancelled. Rejected actions are logged
// and the strategy replans from the latest state.
func drive(ctx context.Context, client *Client, strategy *RideStrategy, state *world.WorldState, maxActions int, delay time.Duration, logger zerolog.Logger) (*RunStats, error) {
	stats := &RunStats{}

	for stats.Actions < maxActions {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		action := strategy.NextAction(state)
		if action == nil {
			break
		}

		result, err := client.Execute(action)
		if err != nil {
			return stats, err
		}
		stats.Actions++
		strategy.RecordResult(action, result.Success)

		if !result.Success {
			stats.Failures++
			logger.Debug().Str("action", action.Kind).Str("actor", action.ActorID).Str("code", result.Code).Msg(result.Message)
		} else {
			logger.Debug().Str("action", action.Kind).Msg(result.Message)
			if result.Move != nil && result.Move.Redirected {
				stats.Redirects++
			}
		}

		if result.State != nil {
			state = result.State
		} else if state, err = client.GetState(); err != nil {
			return stats, err
		}

		if delay > 0 {
			time.Sleep(delay)
		}
	}

	stats.Delivered = strategy.Done()
	return stats, nil
}
