// Package service provides the business logic layer for the open world server.
//
// The service package implements:
//   - Multi-session world management
//   - Scenario loading and saving
//   - Occupant actions (spawn, move, alert, board, sirens, landing gear)
//   - Session lifecycle management
//   - Event log pagination
//
// Core Interfaces:
//
// WorldService is the main service interface providing high-level world operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ScenarioManager manages scenario loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the world model, providing session isolation, scenario management and a
// single lock around every world. Each session owns its own world.World
// instance with independent state.
//
// Usage:
//
//	sessionMgr := session.NewManager(logger)
//	scenarioMgr, _ := config.NewManager("scenarios")
//	worldService := service.NewWorldService(sessionMgr, scenarioMgr, logger)
//
//	// Create a new session
//	info, err := worldService.CreateSession(ctx, "demo")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Move John Doe
//	result, err := worldService.Move(ctx, info.ID, service.MoveRequest{
//		OccupantID: "john", To: world.Pos(30, 50), Speed: 1,
//	})
//
// Results:
//
// Actions return an ActionResult. A rejected action (occupied destination
// with no free neighbour, NPC too far to board, full vehicle) is not a Go
// error: Success is false and Code carries a stable identifier such as
// "too_far" or "no_space". Go errors are reserved for unknown sessions and
// infrastructure failures.
package service
