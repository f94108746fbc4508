// Package websocket pushes world updates to browser and tool clients.
//
// A central Hub keeps clients grouped by session ID. Clients connect with
// ?session=<id>; after every action the API broadcasts the session's
// world state ("state_update") and the event it produced ("world_event").
// Clients only listen; inbound frames merely keep the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run()
//	hub.ServeWS(w, r, sessionID)
//	hub.BroadcastToSession(sessionID, state)
//
// Each client has its own read and write goroutines. A client whose send
// buffer fills up is dropped.
package websocket
