// Package api provides the HTTP REST API for the open world.
//
// Sessions:
//   - POST   /api/sessions                 create a session ({"scenario_id": "..."})
//   - GET    /api/sessions                 list sessions (?sort=created|accessed, ?limit=N)
//   - GET    /api/sessions/unified         sessions with their world summary
//   - GET    /api/sessions/{id}            session info including world state
//   - DELETE /api/sessions/{id}            delete a session
//
// World:
//   - GET  /api/sessions/{id}/state        full world state
//   - GET  /api/sessions/{id}/events       event log (?page, ?limit, ?order=asc|desc, ?type)
//   - POST /api/sessions/{id}/reset        rebuild the world from its scenario
//   - GET  /api/sessions/{id}/cells/{x}/{y} occupancy of one cell
//
// Occupants:
//   - POST /api/sessions/{id}/npcs                          spawn an NPC
//   - POST /api/sessions/{id}/vehicles                      spawn a vehicle
//   - POST /api/sessions/{id}/occupants/{oid}/move          {"x","y","z","speed"}
//   - POST /api/sessions/{id}/npcs/{nid}/alert
//   - POST /api/sessions/{id}/npcs/{nid}/mood               {"mood"}
//   - POST /api/sessions/{id}/vehicles/{vid}/board          {"npc_id"}
//   - POST /api/sessions/{id}/vehicles/{vid}/disembark      {"npc_id"}
//   - POST /api/sessions/{id}/vehicles/{vid}/siren          {"state": "on|off"}
//   - POST /api/sessions/{id}/vehicles/{vid}/landing-gear   {"state": "up|down"}
//
// Scenarios:
//   - GET  /api/scenarios          list scenario files
//   - POST /api/scenarios          save a scenario
//   - GET  /api/scenarios/{name}   load one scenario
//
// Actions always answer 200 with an ActionResult. A rejected action has
// success=false and a machine readable code such as "occupied" or
// "vehicle_full"; the world is left unchanged. Unknown sessions answer 404.
//
// Successful actions are pushed to WebSocket clients subscribed with
// GET /ws?session={id}.
package api
