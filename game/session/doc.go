// Package session provides session management for the open world server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session persistence to JSON files or a SQL database
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each session owns an independent world.World built from a scenario.
// SessionPersistence is implemented by FilePersistence (one JSON document
// per session) and SQLPersistence (a gorm table, on SQLite or Postgres).
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs generated from crypto/rand. Custom IDs are
// accepted and matched case-insensitively.
//
// Usage:
//
//	db, err := session.OpenDatabase("sqlite", "sessions.db", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	store, err := session.NewSQLPersistence(db, scenarioMgr)
//	manager := session.NewManagerWithPersistence(store, logger)
//
//	sess, err := manager.Create("", scenario)
//
// Persistence stores a full world snapshot, so a restored session carries
// every occupant, passenger list and event exactly as it was saved.
package session
