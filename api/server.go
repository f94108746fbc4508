package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/openworld/game/service"
	"github.com/wricardo/mcp-training/openworld/game/world"
	"github.com/wricardo/mcp-training/openworld/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.WorldService
	hub     *websocket.Hub
	router  *mux.Router
	logger  zerolog.Logger
}

// NewServer creates a new API server. hub may be nil when no WebSocket
// clients are served.
func NewServer(worldService service.WorldService, hub *websocket.Hub, logger zerolog.Logger) *Server {
	s := &Server{
		service: worldService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	// Multi-session view (must be before {id} pattern)
	api.HandleFunc("/sessions/unified", s.handleUnifiedSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// World state
	api.HandleFunc("/sessions/{id}/state", s.handleGetWorldState).Methods("GET")
	api.HandleFunc("/sessions/{id}/events", s.handleGetEventLog).Methods("GET")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/cells/{x:-?[0-9]+}/{y:-?[0-9]+}", s.handleDescribeCell).Methods("GET")

	// Population
	api.HandleFunc("/sessions/{id}/npcs", s.handleSpawnNPC).Methods("POST")
	api.HandleFunc("/sessions/{id}/vehicles", s.handleSpawnVehicle).Methods("POST")

	// Actions
	api.HandleFunc("/sessions/{id}/occupants/{oid}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/npcs/{nid}/alert", s.handleAlert).Methods("POST")
	api.HandleFunc("/sessions/{id}/npcs/{nid}/mood", s.handleChangeMood).Methods("POST")
	api.HandleFunc("/sessions/{id}/vehicles/{vid}/board", s.handleBoard).Methods("POST")
	api.HandleFunc("/sessions/{id}/vehicles/{vid}/disembark", s.handleDisembark).Methods("POST")
	api.HandleFunc("/sessions/{id}/vehicles/{vid}/siren", s.handleSiren).Methods("POST")
	api.HandleFunc("/sessions/{id}/vehicles/{vid}/landing-gear", s.handleLandingGear).Methods("POST")

	// Scenarios
	api.HandleFunc("/scenarios", s.handleListScenarios).Methods("GET")
	api.HandleFunc("/scenarios", s.handleCreateScenario).Methods("POST")
	api.HandleFunc("/scenarios/{name}", s.handleGetScenario).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes a JSON request body into v
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id,omitempty"`
	}

	// An empty body selects the default scenario
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	session, err := s.service.CreateSession(r.Context(), req.ScenarioID)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		respondError(w, status, err.Error())
		return
	}

	s.logger.Info().Str("session", session.ID).Str("scenario", session.ScenarioName).Msg("session created")
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < total {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// World State Handlers

func (s *Server) handleGetWorldState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetWorldState(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetEventLog(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.EventLogOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}
	opts.Type = query.Get("type")

	log, err := s.service.GetEventLog(r.Context(), sessionID, opts)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, log)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "World reset successfully",
		"world_state": state,
	})
}

func (s *Server) handleDescribeCell(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	x, errX := strconv.Atoi(vars["x"])
	y, errY := strconv.Atoi(vars["y"])
	if errX != nil || errY != nil {
		respondError(w, http.StatusBadRequest, "Invalid cell coordinates")
		return
	}

	cell, err := s.service.DescribeCell(r.Context(), vars["id"], x, y)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, world.ErrOutOfBounds) {
			status = http.StatusBadRequest
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, cell)
}

// Action Handlers

// respondAction broadcasts a completed action and writes its result.
// Failed domain actions are still 200 responses; the result carries the
// error code.
func (s *Server) respondAction(w http.ResponseWriter, sessionID, action string, result *service.ActionResult, err error) {
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	if s.hub != nil && result.Success {
		s.hub.BroadcastToSession(sessionID, result.State)
		s.hub.BroadcastWorldEvent(sessionID, result.Event)
	}

	ev := s.logger.Debug()
	if !result.Success {
		ev = s.logger.Info().Str("code", result.Code)
	}
	ev.Str("session", sessionID).Str("action", action).Bool("success", result.Success).Msg(result.Message)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSpawnNPC(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var spec world.NPCSpec
	if err := decodeBody(r, &spec); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.SpawnNPC(r.Context(), sessionID, spec)
	s.respondAction(w, sessionID, "spawn_npc", result, err)
}

func (s *Server) handleSpawnVehicle(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var spec world.VehicleSpec
	if err := decodeBody(r, &spec); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.SpawnVehicle(r.Context(), sessionID, spec)
	s.respondAction(w, sessionID, "spawn_vehicle", result, err)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	var req struct {
		X     int `json:"x"`
		Y     int `json:"y"`
		Z     int `json:"z,omitempty"`
		Speed int `json:"speed,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Move(r.Context(), sessionID, service.MoveRequest{
		OccupantID: vars["oid"],
		To:         world.Position{X: req.X, Y: req.Y, Z: req.Z},
		Speed:      req.Speed,
	})
	s.respondAction(w, sessionID, "move", result, err)
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	result, err := s.service.Alert(r.Context(), vars["id"], vars["nid"])
	s.respondAction(w, vars["id"], "alert", result, err)
}

func (s *Server) handleChangeMood(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		Mood world.Mood `json:"mood"`
	}
	if err := decodeBody(r, &req); err != nil || req.Mood == "" {
		respondError(w, http.StatusBadRequest, "Request body must contain a mood")
		return
	}

	result, err := s.service.ChangeMood(r.Context(), vars["id"], vars["nid"], req.Mood)
	s.respondAction(w, vars["id"], "change_mood", result, err)
}

// passengerRequest is the body of board and disembark requests
type passengerRequest struct {
	NPCID string `json:"npc_id"`
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req passengerRequest
	if err := decodeBody(r, &req); err != nil || req.NPCID == "" {
		respondError(w, http.StatusBadRequest, "Request body must contain npc_id")
		return
	}

	result, err := s.service.Board(r.Context(), vars["id"], vars["vid"], req.NPCID)
	s.respondAction(w, vars["id"], "board", result, err)
}

func (s *Server) handleDisembark(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req passengerRequest
	if err := decodeBody(r, &req); err != nil || req.NPCID == "" {
		respondError(w, http.StatusBadRequest, "Request body must contain npc_id")
		return
	}

	result, err := s.service.Disembark(r.Context(), vars["id"], vars["vid"], req.NPCID)
	s.respondAction(w, vars["id"], "disembark", result, err)
}

// toggleRequest is the body of siren and landing gear requests
type toggleRequest struct {
	State string `json:"state"`
}

func (s *Server) handleSiren(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req toggleRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.SetSiren(r.Context(), vars["id"], vars["vid"], req.State)
	s.respondAction(w, vars["id"], "siren", result, err)
}

func (s *Server) handleLandingGear(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req toggleRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.SetLandingGear(r.Context(), vars["id"], vars["vid"], req.State)
	s.respondAction(w, vars["id"], "landing_gear", result, err)
}

// Scenario Handlers

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.service.ListScenarios(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, scenarios)
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	scenario, err := s.service.LoadScenario(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, scenario)
}

func (s *Server) handleCreateScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
		world.Scenario
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Scenario name is required")
		return
	}
	id := req.ID
	if id == "" {
		id = req.Name
	}

	if err := s.service.SaveScenario(r.Context(), id, &req.Scenario); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to save scenario: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Scenario saved successfully",
		"scenario_id": id,
	})
}

// Unified Sessions Handler

func (s *Server) handleUnifiedSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var sessions []*service.SessionInfo

	if sessionIDs := query.Get("sessionIds"); sessionIDs != "" {
		for _, id := range strings.Split(sessionIDs, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if session, err := s.service.GetSession(r.Context(), id); err == nil {
				sessions = append(sessions, session)
			}
		}
	} else {
		allSessions, err := s.service.ListSessions(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		scenarioName := query.Get("scenarioName")
		for _, session := range allSessions {
			if scenarioName == "" || session.ScenarioName == scenarioName {
				sessions = append(sessions, session)
			}
		}
	}

	entries := make([]map[string]interface{}, 0, len(sessions))
	totalOccupants := 0
	for _, session := range sessions {
		occupants := 0
		if session.WorldState != nil {
			occupants = len(session.WorldState.NPCs) + len(session.WorldState.Vehicles)
		}
		totalOccupants += occupants

		entries = append(entries, map[string]interface{}{
			"session_id":    session.ID,
			"scenario_name": session.ScenarioName,
			"occupants":     occupants,
			"world_state":   session.WorldState,
			"created_at":    session.CreatedAt,
			"last_accessed": session.LastAccessedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total_sessions":  len(entries),
		"total_occupants": totalOccupants,
		"sessions":        entries,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "websocket updates disabled", http.StatusServiceUnavailable)
		return
	}

	if _, err := s.service.GetSession(context.Background(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
