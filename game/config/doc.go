// Package config provides scenario and settings management for the open world server.
//
// The config package handles:
//   - Loading world scenarios from JSON files
//   - Scenario validation before use or save
//   - Default scenario selection
//   - Server settings from files and environment variables
//
// Scenario Format:
//
// Scenarios are stored as JSON files in the scenarios directory. Each
// scenario names its starting population:
//   - NPCs with name, gender, appearance, age group and ground position
//   - Vehicles with registration, make, model, livery, capacity and capabilities
//   - Optional world limits (boarding range, neighbour search radius) and a seed
//
// Usage:
//
//	manager, err := config.NewManager("scenarios")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	scenario, err := manager.LoadScenario("downtown")
//	defaultScenario := manager.GetDefault()
//	scenarios, err := manager.ListScenarios()
//
// Settings:
//
// LoadSettings layers defaults, an optional JSON or YAML settings file and
// OPENWORLD_* environment variables (OPENWORLD_PORT, OPENWORLD_PERSISTENCE,
// OPENWORLD_DSN, ...).
package config
