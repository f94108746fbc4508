package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/openworld/game/service"
	"github.com/wricardo/mcp-training/openworld/game/world"
	"github.com/wricardo/mcp-training/openworld/transport/websocket"
)

// MockWorldService implements service.WorldService for testing
type MockWorldService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, scenarioName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Population
	SpawnNPCFunc     func(ctx context.Context, sessionID string, spec world.NPCSpec) (*service.ActionResult, error)
	SpawnVehicleFunc func(ctx context.Context, sessionID string, spec world.VehicleSpec) (*service.ActionResult, error)

	// Actions
	MoveFunc           func(ctx context.Context, sessionID string, req service.MoveRequest) (*service.ActionResult, error)
	AlertFunc          func(ctx context.Context, sessionID, npcID string) (*service.ActionResult, error)
	ChangeMoodFunc     func(ctx context.Context, sessionID, npcID string, mood world.Mood) (*service.ActionResult, error)
	BoardFunc          func(ctx context.Context, sessionID, vehicleID, npcID string) (*service.ActionResult, error)
	DisembarkFunc      func(ctx context.Context, sessionID, vehicleID, npcID string) (*service.ActionResult, error)
	SetSirenFunc       func(ctx context.Context, sessionID, vehicleID, state string) (*service.ActionResult, error)
	SetLandingGearFunc func(ctx context.Context, sessionID, vehicleID, state string) (*service.ActionResult, error)
	ResetFunc          func(ctx context.Context, sessionID string) (*world.WorldState, error)

	// World State
	GetWorldStateFunc func(ctx context.Context, sessionID string) (*world.WorldState, error)
	GetEventLogFunc   func(ctx context.Context, sessionID string, opts service.EventLogOptions) (*service.EventLogResponse, error)
	DescribeCellFunc  func(ctx context.Context, sessionID string, x, y int) (*world.CellInfo, error)

	// Scenarios
	ListScenariosFunc func(ctx context.Context) ([]*service.ScenarioInfo, error)
	LoadScenarioFunc  func(ctx context.Context, name string) (*world.Scenario, error)
	SaveScenarioFunc  func(ctx context.Context, name string, scenario *world.Scenario) error
}

func okResult(message string) *service.ActionResult {
	return &service.ActionResult{Success: true, Message: message, State: &world.WorldState{Name: "demo"}}
}

// Session Management
func (m *MockWorldService) CreateSession(ctx context.Context, scenarioName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, scenarioName)
	}
	return &service.SessionInfo{ID: "test-session", ScenarioName: scenarioName, CreatedAt: time.Now()}, nil
}

func (m *MockWorldService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ScenarioName: "demo", CreatedAt: time.Now()}, nil
}

func (m *MockWorldService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockWorldService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

// Population
func (m *MockWorldService) SpawnNPC(ctx context.Context, sessionID string, spec world.NPCSpec) (*service.ActionResult, error) {
	if m.SpawnNPCFunc != nil {
		return m.SpawnNPCFunc(ctx, sessionID, spec)
	}
	return okResult("spawned"), nil
}

func (m *MockWorldService) SpawnVehicle(ctx context.Context, sessionID string, spec world.VehicleSpec) (*service.ActionResult, error) {
	if m.SpawnVehicleFunc != nil {
		return m.SpawnVehicleFunc(ctx, sessionID, spec)
	}
	return okResult("spawned"), nil
}

// Actions
func (m *MockWorldService) Move(ctx context.Context, sessionID string, req service.MoveRequest) (*service.ActionResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, req)
	}
	return okResult("moved"), nil
}

func (m *MockWorldService) Alert(ctx context.Context, sessionID, npcID string) (*service.ActionResult, error) {
	if m.AlertFunc != nil {
		return m.AlertFunc(ctx, sessionID, npcID)
	}
	return okResult("alerted"), nil
}

func (m *MockWorldService) ChangeMood(ctx context.Context, sessionID, npcID string, mood world.Mood) (*service.ActionResult, error) {
	if m.ChangeMoodFunc != nil {
		return m.ChangeMoodFunc(ctx, sessionID, npcID, mood)
	}
	return okResult("mood changed"), nil
}

func (m *MockWorldService) Board(ctx context.Context, sessionID, vehicleID, npcID string) (*service.ActionResult, error) {
	if m.BoardFunc != nil {
		return m.BoardFunc(ctx, sessionID, vehicleID, npcID)
	}
	return okResult("boarded"), nil
}

func (m *MockWorldService) Disembark(ctx context.Context, sessionID, vehicleID, npcID string) (*service.ActionResult, error) {
	if m.DisembarkFunc != nil {
		return m.DisembarkFunc(ctx, sessionID, vehicleID, npcID)
	}
	return okResult("disembarked"), nil
}

func (m *MockWorldService) SetSiren(ctx context.Context, sessionID, vehicleID, state string) (*service.ActionResult, error) {
	if m.SetSirenFunc != nil {
		return m.SetSirenFunc(ctx, sessionID, vehicleID, state)
	}
	return okResult("siren"), nil
}

func (m *MockWorldService) SetLandingGear(ctx context.Context, sessionID, vehicleID, state string) (*service.ActionResult, error) {
	if m.SetLandingGearFunc != nil {
		return m.SetLandingGearFunc(ctx, sessionID, vehicleID, state)
	}
	return okResult("gear"), nil
}

func (m *MockWorldService) Reset(ctx context.Context, sessionID string) (*world.WorldState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &world.WorldState{Name: "demo"}, nil
}

// World State
func (m *MockWorldService) GetWorldState(ctx context.Context, sessionID string) (*world.WorldState, error) {
	if m.GetWorldStateFunc != nil {
		return m.GetWorldStateFunc(ctx, sessionID)
	}
	return &world.WorldState{Name: "demo"}, nil
}

func (m *MockWorldService) GetEventLog(ctx context.Context, sessionID string, opts service.EventLogOptions) (*service.EventLogResponse, error) {
	if m.GetEventLogFunc != nil {
		return m.GetEventLogFunc(ctx, sessionID, opts)
	}
	return &service.EventLogResponse{Events: []world.Event{}, Page: opts.Page, PageSize: opts.Limit, TotalPages: 1}, nil
}

func (m *MockWorldService) DescribeCell(ctx context.Context, sessionID string, x, y int) (*world.CellInfo, error) {
	if m.DescribeCellFunc != nil {
		return m.DescribeCellFunc(ctx, sessionID, x, y)
	}
	return &world.CellInfo{Position: world.Pos(x, y)}, nil
}

// Scenarios
func (m *MockWorldService) ListScenarios(ctx context.Context) ([]*service.ScenarioInfo, error) {
	if m.ListScenariosFunc != nil {
		return m.ListScenariosFunc(ctx)
	}
	return []*service.ScenarioInfo{}, nil
}

func (m *MockWorldService) LoadScenario(ctx context.Context, name string) (*world.Scenario, error) {
	if m.LoadScenarioFunc != nil {
		return m.LoadScenarioFunc(ctx, name)
	}
	return &world.Scenario{Name: name, Description: "Test scenario"}, nil
}

func (m *MockWorldService) SaveScenario(ctx context.Context, name string, scenario *world.Scenario) error {
	if m.SaveScenarioFunc != nil {
		return m.SaveScenarioFunc(ctx, name, scenario)
	}
	return nil
}

// Test helpers
func setupTestServer(mockService *MockWorldService) *Server {
	hub := websocket.NewHub(zerolog.Nop())
	go hub.Run()
	return NewServer(mockService, hub, zerolog.Nop())
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func serve(server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest(method, path, body))
	return w
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    map[string]string
		setupMock      func(*MockWorldService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Create session with default scenario",
			setupMock: func(m *MockWorldService) {
				m.CreateSessionFunc = func(ctx context.Context, scenarioName string) (*service.SessionInfo, error) {
					if scenarioName != "" {
						t.Errorf("Expected empty scenario name, got %s", scenarioName)
					}
					return &service.SessionInfo{ID: "a1b2", ScenarioName: "demo", CreatedAt: time.Now()}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "a1b2" {
					t.Errorf("Expected session ID a1b2, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with specific scenario",
			requestBody: map[string]string{"scenario_id": "downtown"},
			setupMock: func(m *MockWorldService) {
				m.CreateSessionFunc = func(ctx context.Context, scenarioName string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "c3d4", ScenarioName: scenarioName, CreatedAt: time.Now()}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ScenarioName != "downtown" {
					t.Errorf("Expected scenario 'downtown', got %s", resp.ScenarioName)
				}
			},
		},
		{
			name:        "Unknown scenario",
			requestBody: map[string]string{"scenario_id": "atlantis"},
			setupMock: func(m *MockWorldService) {
				m.CreateSessionFunc = func(ctx context.Context, scenarioName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("scenario '%s' not found. Available scenarios: [demo]", scenarioName)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockWorldService) {
				m.CreateSessionFunc = func(ctx context.Context, scenarioName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockWorldService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			var body interface{}
			if tt.requestBody != nil {
				body = tt.requestBody
			}
			w := serve(server, "POST", "/api/sessions", body)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mockService := &MockWorldService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old", CreatedAt: base, LastAccessedAt: base.Add(3 * time.Hour)},
				{ID: "mid", CreatedAt: base.Add(time.Hour), LastAccessedAt: base.Add(time.Hour)},
				{ID: "new", CreatedAt: base.Add(2 * time.Hour), LastAccessedAt: base.Add(2 * time.Hour)},
			}, nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		name      string
		query     string
		wantIDs   []string
		wantTotal int
	}{
		{name: "default sorts by access desc", query: "", wantIDs: []string{"old", "new", "mid"}, wantTotal: 3},
		{name: "created asc", query: "?sort=created&order=asc", wantIDs: []string{"old", "mid", "new"}, wantTotal: 3},
		{name: "limit", query: "?sort=created&limit=2", wantIDs: []string{"new", "mid"}, wantTotal: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, "GET", "/api/sessions"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != tt.wantTotal || resp.Count != len(tt.wantIDs) {
				t.Errorf("Expected count %d of %d, got %d of %d", len(tt.wantIDs), tt.wantTotal, resp.Count, resp.Total)
			}
			for i, id := range tt.wantIDs {
				if i >= len(resp.Sessions) || resp.Sessions[i].ID != id {
					t.Errorf("Expected session %d to be %s", i, id)
				}
			}
		})
	}

	t.Run("service error", func(t *testing.T) {
		failing := setupTestServer(&MockWorldService{
			ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
				return nil, fmt.Errorf("database error")
			},
		})
		w := serve(failing, "GET", "/api/sessions", nil)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", w.Code)
		}
	})
}

func TestGetAndDeleteSession(t *testing.T) {
	notFound := func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
		if sessionID != "a1b2" {
			return nil, fmt.Errorf("session not found")
		}
		return &service.SessionInfo{ID: sessionID, ScenarioName: "demo"}, nil
	}
	mockService := &MockWorldService{
		GetSessionFunc: notFound,
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID != "a1b2" {
				return fmt.Errorf("session not found")
			}
			return nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"get existing", "GET", "/api/sessions/a1b2", http.StatusOK},
		{"get missing", "GET", "/api/sessions/zzzz", http.StatusNotFound},
		{"delete existing", "DELETE", "/api/sessions/a1b2", http.StatusOK},
		{"delete missing", "DELETE", "/api/sessions/zzzz", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, tt.method, tt.path, nil)
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

// World State Tests

func TestGetWorldState(t *testing.T) {
	mockService := &MockWorldService{
		GetWorldStateFunc: func(ctx context.Context, sessionID string) (*world.WorldState, error) {
			if sessionID != "a1b2" {
				return nil, fmt.Errorf("session not found")
			}
			return &world.WorldState{
				Name:  "demo",
				Width: world.MapSize, Height: world.MapSize,
				NPCs: []world.NPC{{ID: "john", Name: "John Doe", Position: world.Pos(10, 20), Mood: world.Relaxed}},
			}, nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, "GET", "/api/sessions/a1b2/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var state world.WorldState
	parseResponse(t, w, &state)
	if len(state.NPCs) != 1 || state.NPCs[0].Position != world.Pos(10, 20) {
		t.Errorf("Unexpected state: %+v", state)
	}

	w = serve(server, "GET", "/api/sessions/zzzz/state", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetEventLog(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantOpts service.EventLogOptions
	}{
		{"defaults", "", service.EventLogOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"explicit", "?page=2&limit=5&order=asc&type=move", service.EventLogOptions{Page: 2, Limit: 5, Order: "asc", Type: "move"}},
		{"invalid values ignored", "?page=-1&limit=abc&order=sideways", service.EventLogOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.EventLogOptions
			server := setupTestServer(&MockWorldService{
				GetEventLogFunc: func(ctx context.Context, sessionID string, opts service.EventLogOptions) (*service.EventLogResponse, error) {
					got = opts
					return &service.EventLogResponse{Events: []world.Event{}}, nil
				},
			})

			w := serve(server, "GET", "/api/sessions/a1b2/events"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.wantOpts {
				t.Errorf("Expected options %+v, got %+v", tt.wantOpts, got)
			}
		})
	}
}

func TestReset(t *testing.T) {
	server := setupTestServer(&MockWorldService{})

	w := serve(server, "POST", "/api/sessions/a1b2/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	parseResponse(t, w, &resp)
	if resp["world_state"] == nil {
		t.Error("Expected world_state in reset response")
	}

	failing := setupTestServer(&MockWorldService{
		ResetFunc: func(ctx context.Context, sessionID string) (*world.WorldState, error) {
			return nil, fmt.Errorf("session not found")
		},
	})
	if w := serve(failing, "POST", "/api/sessions/zzzz/reset", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDescribeCell(t *testing.T) {
	server := setupTestServer(&MockWorldService{
		DescribeCellFunc: func(ctx context.Context, sessionID string, x, y int) (*world.CellInfo, error) {
			if x < 0 || y < 0 || x >= world.MapSize || y >= world.MapSize {
				return nil, fmt.Errorf("%w: (%d, %d)", world.ErrOutOfBounds, x, y)
			}
			if x == 10 && y == 20 {
				return &world.CellInfo{Position: world.Pos(x, y), Occupied: true, OccupantID: "john", OccupantKind: world.KindNPC}, nil
			}
			return &world.CellInfo{Position: world.Pos(x, y)}, nil
		},
	})

	tests := []struct {
		name         string
		path         string
		wantStatus   int
		wantOccupied bool
	}{
		{"occupied cell", "/api/sessions/a1b2/cells/10/20", http.StatusOK, true},
		{"empty cell", "/api/sessions/a1b2/cells/0/0", http.StatusOK, false},
		{"out of bounds", "/api/sessions/a1b2/cells/-1/5", http.StatusBadRequest, false},
		{"non-numeric", "/api/sessions/a1b2/cells/x/5", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, "GET", tt.path, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var cell world.CellInfo
			parseResponse(t, w, &cell)
			if cell.Occupied != tt.wantOccupied {
				t.Errorf("Expected occupied=%v, got %v", tt.wantOccupied, cell.Occupied)
			}
		})
	}
}

// Action Tests

func TestMove(t *testing.T) {
	var got service.MoveRequest
	server := setupTestServer(&MockWorldService{
		MoveFunc: func(ctx context.Context, sessionID string, req service.MoveRequest) (*service.ActionResult, error) {
			got = req
			if req.To == world.Pos(10, 15) {
				return &service.ActionResult{Success: true, Message: "redirected", Move: &world.MoveResult{
					OccupantID: req.OccupantID, Requested: req.To, To: world.Pos(10, 16), Redirected: true,
				}}, nil
			}
			return &service.ActionResult{Success: false, Code: "out_of_bounds", Message: "position out of bounds"}, nil
		},
	})

	t.Run("move is forwarded", func(t *testing.T) {
		w := serve(server, "POST", "/api/sessions/a1b2/occupants/john/move", map[string]int{"x": 10, "y": 15, "speed": 3})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		want := service.MoveRequest{OccupantID: "john", To: world.Pos(10, 15), Speed: 3}
		if got != want {
			t.Errorf("Expected request %+v, got %+v", want, got)
		}

		var result service.ActionResult
		parseResponse(t, w, &result)
		if !result.Success || result.Move == nil || !result.Move.Redirected {
			t.Errorf("Expected redirected move, got %+v", result)
		}
	})

	t.Run("domain failure is reported in the body", func(t *testing.T) {
		w := serve(server, "POST", "/api/sessions/a1b2/occupants/john/move", map[string]int{"x": 500, "y": 500})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var result service.ActionResult
		parseResponse(t, w, &result)
		if result.Success || result.Code != "out_of_bounds" {
			t.Errorf("Expected out_of_bounds failure, got %+v", result)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/sessions/a1b2/occupants/john/move", bytes.NewBufferString("{nope"))
		server.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestNPCActions(t *testing.T) {
	var alerted, moodNPC string
	var mood world.Mood
	server := setupTestServer(&MockWorldService{
		AlertFunc: func(ctx context.Context, sessionID, npcID string) (*service.ActionResult, error) {
			alerted = npcID
			return okResult("alerted"), nil
		},
		ChangeMoodFunc: func(ctx context.Context, sessionID, npcID string, m world.Mood) (*service.ActionResult, error) {
			moodNPC, mood = npcID, m
			return okResult("mood"), nil
		},
	})

	if w := serve(server, "POST", "/api/sessions/a1b2/npcs/jane/alert", nil); w.Code != http.StatusOK {
		t.Errorf("Expected alert status 200, got %d", w.Code)
	}
	if alerted != "jane" {
		t.Errorf("Expected jane to be alerted, got %q", alerted)
	}

	if w := serve(server, "POST", "/api/sessions/a1b2/npcs/bob/mood", map[string]string{"mood": "angry"}); w.Code != http.StatusOK {
		t.Errorf("Expected mood status 200, got %d", w.Code)
	}
	if moodNPC != "bob" || mood != world.Angry {
		t.Errorf("Expected bob to become angry, got %q %q", moodNPC, mood)
	}

	if w := serve(server, "POST", "/api/sessions/a1b2/npcs/bob/mood", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected missing mood to be 400, got %d", w.Code)
	}
}

func TestVehicleActions(t *testing.T) {
	calls := map[string]string{}
	server := setupTestServer(&MockWorldService{
		BoardFunc: func(ctx context.Context, sessionID, vehicleID, npcID string) (*service.ActionResult, error) {
			calls["board"] = vehicleID + "/" + npcID
			return okResult("boarded"), nil
		},
		DisembarkFunc: func(ctx context.Context, sessionID, vehicleID, npcID string) (*service.ActionResult, error) {
			calls["disembark"] = vehicleID + "/" + npcID
			return okResult("disembarked"), nil
		},
		SetSirenFunc: func(ctx context.Context, sessionID, vehicleID, state string) (*service.ActionResult, error) {
			calls["siren"] = vehicleID + "/" + state
			return okResult("Wee Woo Wee Woo"), nil
		},
		SetLandingGearFunc: func(ctx context.Context, sessionID, vehicleID, state string) (*service.ActionResult, error) {
			calls["gear"] = vehicleID + "/" + state
			return &service.ActionResult{Success: false, Code: "missing_capability", Message: "vehicle has no landing gear"}, nil
		},
	})

	tests := []struct {
		name string
		path string
		body interface{}
		key  string
		want string
	}{
		{"board", "/api/sessions/a1b2/vehicles/abc-123/board", map[string]string{"npc_id": "john"}, "board", "abc-123/john"},
		{"disembark", "/api/sessions/a1b2/vehicles/abc-123/disembark", map[string]string{"npc_id": "john"}, "disembark", "abc-123/john"},
		{"siren", "/api/sessions/a1b2/vehicles/345-abc/siren", map[string]string{"state": "on"}, "siren", "345-abc/on"},
		{"landing gear", "/api/sessions/a1b2/vehicles/abc-123/landing-gear", map[string]string{"state": "up"}, "gear", "abc-123/up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, "POST", tt.path, tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
			}
			if calls[tt.key] != tt.want {
				t.Errorf("Expected %s call %q, got %q", tt.key, tt.want, calls[tt.key])
			}
		})
	}

	t.Run("board requires npc_id", func(t *testing.T) {
		w := serve(server, "POST", "/api/sessions/a1b2/vehicles/abc-123/board", map[string]string{})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestActionUnknownSession(t *testing.T) {
	server := setupTestServer(&MockWorldService{
		AlertFunc: func(ctx context.Context, sessionID, npcID string) (*service.ActionResult, error) {
			return nil, fmt.Errorf("session not found: %w", errors.New("session not found"))
		},
	})

	w := serve(server, "POST", "/api/sessions/zzzz/npcs/john/alert", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestSpawn(t *testing.T) {
	var npc world.NPCSpec
	var vehicle world.VehicleSpec
	server := setupTestServer(&MockWorldService{
		SpawnNPCFunc: func(ctx context.Context, sessionID string, spec world.NPCSpec) (*service.ActionResult, error) {
			npc = spec
			return okResult("NPC appeared"), nil
		},
		SpawnVehicleFunc: func(ctx context.Context, sessionID string, spec world.VehicleSpec) (*service.ActionResult, error) {
			vehicle = spec
			return okResult("Vehicle appeared"), nil
		},
	})

	w := serve(server, "POST", "/api/sessions/a1b2/npcs", world.NPCSpec{
		Name: "Zed", Appearance: "casual", Age: world.Senior, Position: world.Pos(4, 4),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if npc.Name != "Zed" || npc.Age != world.Senior {
		t.Errorf("Unexpected NPC spec %+v", npc)
	}

	w = serve(server, "POST", "/api/sessions/a1b2/vehicles", world.VehicleSpec{
		Registration: "BUS-1", Position: world.Pos(4, 3), Capacity: 30,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if vehicle.Registration != "BUS-1" || vehicle.Capacity != 30 {
		t.Errorf("Unexpected vehicle spec %+v", vehicle)
	}
}

// Scenario Tests

func TestScenarios(t *testing.T) {
	var savedName string
	server := setupTestServer(&MockWorldService{
		ListScenariosFunc: func(ctx context.Context) ([]*service.ScenarioInfo, error) {
			return []*service.ScenarioInfo{{ScenarioID: "demo", Name: "demo", NPCCount: 3, VehicleCount: 3}}, nil
		},
		LoadScenarioFunc: func(ctx context.Context, name string) (*world.Scenario, error) {
			if name != "demo" {
				return nil, service.ErrScenarioNotFound
			}
			return world.DefaultScenario(), nil
		},
		SaveScenarioFunc: func(ctx context.Context, name string, scenario *world.Scenario) error {
			if err := world.ValidateScenario(scenario); err != nil {
				return err
			}
			savedName = name
			return nil
		},
	})

	t.Run("list", func(t *testing.T) {
		w := serve(server, "GET", "/api/scenarios", nil)
		var infos []*service.ScenarioInfo
		parseResponse(t, w, &infos)
		if len(infos) != 1 || infos[0].NPCCount != 3 {
			t.Errorf("Unexpected scenario list %+v", infos)
		}
	})

	t.Run("get strips extension", func(t *testing.T) {
		w := serve(server, "GET", "/api/scenarios/demo.json", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var s world.Scenario
		parseResponse(t, w, &s)
		if len(s.Vehicles) != 3 {
			t.Errorf("Expected 3 vehicles, got %d", len(s.Vehicles))
		}
	})

	t.Run("get missing", func(t *testing.T) {
		if w := serve(server, "GET", "/api/scenarios/atlantis", nil); w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	t.Run("create", func(t *testing.T) {
		body := map[string]interface{}{
			"id":          "quiet",
			"name":        "Quiet Street",
			"description": "One pedestrian",
			"npcs": []map[string]interface{}{
				{"name": "Ann", "appearance": "casual", "age": "adult", "position": map[string]int{"x": 1, "y": 1}},
			},
		}
		w := serve(server, "POST", "/api/scenarios", body)
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
		}
		if savedName != "quiet" {
			t.Errorf("Expected scenario saved as 'quiet', got %q", savedName)
		}
	})

	t.Run("create invalid", func(t *testing.T) {
		w := serve(server, "POST", "/api/scenarios", map[string]interface{}{"name": "No Description"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("create without name", func(t *testing.T) {
		w := serve(server, "POST", "/api/scenarios", map[string]interface{}{"description": "nameless"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestUnifiedSessions(t *testing.T) {
	server := setupTestServer(&MockWorldService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "a1b2", ScenarioName: "demo", WorldState: &world.WorldState{NPCs: make([]world.NPC, 3), Vehicles: make([]world.Vehicle, 3)}},
				{ID: "c3d4", ScenarioName: "downtown", WorldState: &world.WorldState{NPCs: make([]world.NPC, 4)}},
			}, nil
		},
	})

	w := serve(server, "GET", "/api/sessions/unified?scenarioName=demo", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		TotalSessions  int `json:"total_sessions"`
		TotalOccupants int `json:"total_occupants"`
	}
	parseResponse(t, w, &resp)
	if resp.TotalSessions != 1 || resp.TotalOccupants != 6 {
		t.Errorf("Expected 1 session with 6 occupants, got %+v", resp)
	}
}

func TestHealthAndWebSocket(t *testing.T) {
	server := setupTestServer(&MockWorldService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			return nil, fmt.Errorf("session not found")
		},
	})

	if w := serve(server, "GET", "/healthz", nil); w.Code != http.StatusOK {
		t.Errorf("Expected health status 200, got %d", w.Code)
	}
	if w := serve(server, "GET", "/ws", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected missing session to be 400, got %d", w.Code)
	}
	if w := serve(server, "GET", "/ws?session=zzzz", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected unknown session to be 404, got %d", w.Code)
	}
}
