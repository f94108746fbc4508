// Package mcp exposes the open world to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// the api package and the JSON response is rendered as text.
//
// MCP Tools:
//   - create_session, get_session, list_sessions, delete_session
//   - world_state: NPCs and vehicles with positions, moods and passengers
//   - event_log: paginated world events, filterable by type
//   - describe_cell: who occupies a grid cell
//   - reset_world: rebuild a session from its scenario
//   - spawn_npc, spawn_vehicle
//   - move, alert, change_mood
//   - board, disembark, set_siren, set_landing_gear
//   - list_scenarios, world_instructions
//
// Failed world actions come back as normal tool results carrying the
// failure code; only transport errors are reported as tool errors.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
