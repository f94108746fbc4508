package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/openworld/game/service"
	"github.com/wricardo/mcp-training/openworld/game/world"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Open World",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Open World - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A 100x100 grid holds NPCs and vehicles, at most one per cell. Moves that land
on an occupied cell are redirected to a nearby empty cell. NPCs board vehicles
within range and ride along until they disembark.

AVAILABLE TOOLS:
- create_session, get_session, list_sessions, delete_session
- world_state, event_log, describe_cell, reset_world
- spawn_npc, spawn_vehicle
- move: move an NPC or vehicle (speed 1 walks, faster runs)
- alert, change_mood: change an NPC's mood
- board, disembark: passengers and vehicles
- set_siren, set_landing_gear: vehicle capabilities
- list_scenarios, world_instructions`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func stringProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func integerProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

func enumProperty(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        values,
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new world session with optional scenario selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scenario_id": stringProperty("Scenario to load (optional, defaults to demo)"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active world sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleDeleteSession)

	// World state
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "world_state",
		Description: "Get every NPC and vehicle in a session with positions, moods and passengers",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleWorldState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "event_log",
		Description: "Get the session's event log, most recent first by default",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page":       integerProperty("Page number"),
				"limit":      integerProperty("Items per page"),
				"order":      enumProperty("Sort order", "asc", "desc"),
				"type":       enumProperty("Only events of this type", "spawn", "move", "mood", "siren", "landing_gear", "board", "disembark"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleEventLog)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Report whether a grid cell is empty or which occupant holds it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x":          integerProperty("X coordinate (0-based)"),
				"y":          integerProperty("Y coordinate (0-based)"),
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_world",
		Description: "Rebuild the session's world from its scenario",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	// Population
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "spawn_npc",
		Description: "Add an NPC at an empty ground cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"name":       stringProperty("Display name"),
				"gender":     stringProperty("Gender (optional)"),
				"appearance": stringProperty("Appearance tag, e.g. casual, business, police"),
				"age":        enumProperty("Age group", "minor", "adult", "senior"),
				"x":          integerProperty("X coordinate"),
				"y":          integerProperty("Y coordinate"),
			},
			Required: []string{"session_id", "name", "appearance", "age", "x", "y"},
		},
	}, c.handleSpawnNPC)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "spawn_vehicle",
		Description: "Add a vehicle. Airborne vehicles take a z altitude and stay off the grid.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":   sessionProperty(),
				"registration": stringProperty("Registration (VRN)"),
				"make":         stringProperty("Make (optional)"),
				"model":        stringProperty("Model (optional)"),
				"colour":       stringProperty("Colour or livery (optional)"),
				"capacity":     integerProperty("Passenger capacity"),
				"x":            integerProperty("X coordinate"),
				"y":            integerProperty("Y coordinate"),
				"z":            integerProperty("Altitude for airborne vehicles (optional)"),
				"capabilities": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"grounded", "airborne", "siren", "landing_gear"},
					},
					"description": "Capability tags",
				},
			},
			Required: []string{"session_id", "registration", "capacity", "x", "y"},
		},
	}, c.handleSpawnVehicle)

	// Actions
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move an NPC or vehicle. Occupied destinations are redirected to a nearby empty cell.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":  sessionProperty(),
				"occupant_id": stringProperty("NPC or vehicle ID"),
				"x":           integerProperty("Destination X"),
				"y":           integerProperty("Destination Y"),
				"z":           integerProperty("Destination altitude for airborne vehicles (optional)"),
				"speed":       integerProperty("Speed: 1 walks, above 1 runs (default 1)"),
			},
			Required: []string{"session_id", "occupant_id", "x", "y"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "alert",
		Description: "Alert an NPC. Police attack; others become nervous or attack at random.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"npc_id":     stringProperty("NPC ID"),
			},
			Required: []string{"session_id", "npc_id"},
		},
	}, c.handleAlert)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "change_mood",
		Description: "Set an NPC's mood directly",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"npc_id":     stringProperty("NPC ID"),
				"mood":       enumProperty("New mood", "relaxed", "nervous", "angry", "attack"),
			},
			Required: []string{"session_id", "npc_id", "mood"},
		},
	}, c.handleChangeMood)

	passengerSchema := mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": sessionProperty(),
			"vehicle_id": stringProperty("Vehicle ID"),
			"npc_id":     stringProperty("NPC ID"),
		},
		Required: []string{"session_id", "vehicle_id", "npc_id"},
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board",
		Description: "Put an NPC within boarding range into a vehicle",
		InputSchema: passengerSchema,
	}, c.handleBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "disembark",
		Description: "Let a passenger out next to the vehicle",
		InputSchema: passengerSchema,
	}, c.handleDisembark)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_siren",
		Description: "Turn a vehicle's siren on or off (requires the siren capability)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"vehicle_id": stringProperty("Vehicle ID"),
				"state":      enumProperty("Siren state", "on", "off"),
			},
			Required: []string{"session_id", "vehicle_id", "state"},
		},
	}, c.handleSiren)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_landing_gear",
		Description: "Raise or lower a vehicle's landing gear (requires the landing_gear capability)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"vehicle_id": stringProperty("Vehicle ID"),
				"state":      enumProperty("Gear state", "up", "down"),
			},
			Required: []string{"session_id", "vehicle_id", "state"},
		},
	}, c.handleLandingGear)

	// Scenarios
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_scenarios",
		Description: "List available world scenarios",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListScenarios)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "world_instructions",
		Description: "Get the rules of the world: occupancy, movement, boarding, mood and capabilities",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleWorldInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// action posts body to path and renders the ActionResult
func (c *Client) action(path string, body interface{}) (*mcp.CallToolResult, error) {
	var result service.ActionResult
	if err := c.apiCall("POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if scenarioID := request.GetString("scenario_id", ""); scenarioID != "" {
		body["scenario_id"] = scenarioID
	}

	var session service.SessionInfo
	if err := c.apiCall("POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nScenario: %s\n", session.ID, session.ScenarioName)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall("GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (Scenario: %s, Created: %s)\n",
			s.ID, s.ScenarioName, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var session service.SessionInfo
	if err := c.apiCall("GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	if err := c.apiCall("DELETE", sessionPath(sessionID, ""), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Session %s deleted", sessionID)), nil
}

func (c *Client) handleWorldState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var state world.WorldState
	if err := c.apiCall("GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatWorldState(&state)), nil
}

func (c *Client) handleEventLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	params := url.Values{}
	if page := request.GetInt("page", 0); page > 0 {
		params.Set("page", fmt.Sprint(page))
	}
	if limit := request.GetInt("limit", 0); limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	if order := request.GetString("order", ""); order != "" {
		params.Set("order", order)
	}
	if eventType := request.GetString("type", ""); eventType != "" {
		params.Set("type", eventType)
	}

	path := sessionPath(sessionID, "/events")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var log service.EventLogResponse
	if err := c.apiCall("GET", path, nil, &log); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatEventLog(&log)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	x := request.GetInt("x", -1)
	y := request.GetInt("y", -1)

	var cell world.CellInfo
	if err := c.apiCall("GET", sessionPath(sessionID, fmt.Sprintf("/cells/%d/%d", x, y)), nil, &cell); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCell(&cell)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var response struct {
		Message string            `json:"message"`
		State   *world.WorldState `json:"world_state"`
	}
	if err := c.apiCall("POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatWorldState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleSpawnNPC(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	spec := world.NPCSpec{
		Name:       request.GetString("name", ""),
		Gender:     request.GetString("gender", ""),
		Appearance: request.GetString("appearance", ""),
		Age:        world.Age(request.GetString("age", "")),
		Position:   world.Pos(request.GetInt("x", 0), request.GetInt("y", 0)),
	}
	return c.action(sessionPath(sessionID, "/npcs"), spec)
}

func (c *Client) handleSpawnVehicle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var capabilities []world.Capability
	for _, tag := range request.GetStringSlice("capabilities", nil) {
		capabilities = append(capabilities, world.Capability(tag))
	}

	spec := world.VehicleSpec{
		Registration: request.GetString("registration", ""),
		Make:         request.GetString("make", ""),
		Model:        request.GetString("model", ""),
		Colour:       request.GetString("colour", ""),
		Capacity:     request.GetInt("capacity", 0),
		Capabilities: capabilities,
		Position: world.Position{
			X: request.GetInt("x", 0),
			Y: request.GetInt("y", 0),
			Z: request.GetInt("z", 0),
		},
	}
	return c.action(sessionPath(sessionID, "/vehicles"), spec)
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	occupantID := request.GetString("occupant_id", "")

	body := map[string]int{
		"x":     request.GetInt("x", 0),
		"y":     request.GetInt("y", 0),
		"z":     request.GetInt("z", 0),
		"speed": request.GetInt("speed", 1),
	}
	return c.action(sessionPath(sessionID, "/occupants/"+url.PathEscape(occupantID)+"/move"), body)
}

func (c *Client) handleAlert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	npcID := request.GetString("npc_id", "")
	return c.action(sessionPath(sessionID, "/npcs/"+url.PathEscape(npcID)+"/alert"), nil)
}

func (c *Client) handleChangeMood(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	npcID := request.GetString("npc_id", "")
	body := map[string]string{"mood": request.GetString("mood", "")}
	return c.action(sessionPath(sessionID, "/npcs/"+url.PathEscape(npcID)+"/mood"), body)
}

func (c *Client) handleBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	vehicleID := request.GetString("vehicle_id", "")
	body := map[string]string{"npc_id": request.GetString("npc_id", "")}
	return c.action(sessionPath(sessionID, "/vehicles/"+url.PathEscape(vehicleID)+"/board"), body)
}

func (c *Client) handleDisembark(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	vehicleID := request.GetString("vehicle_id", "")
	body := map[string]string{"npc_id": request.GetString("npc_id", "")}
	return c.action(sessionPath(sessionID, "/vehicles/"+url.PathEscape(vehicleID)+"/disembark"), body)
}

func (c *Client) handleSiren(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	vehicleID := request.GetString("vehicle_id", "")
	body := map[string]string{"state": request.GetString("state", "")}
	return c.action(sessionPath(sessionID, "/vehicles/"+url.PathEscape(vehicleID)+"/siren"), body)
}

func (c *Client) handleLandingGear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	vehicleID := request.GetString("vehicle_id", "")
	body := map[string]string{"state": request.GetString("state", "")}
	return c.action(sessionPath(sessionID, "/vehicles/"+url.PathEscape(vehicleID)+"/landing-gear"), body)
}

func (c *Client) handleListScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var scenarios []service.ScenarioInfo
	if err := c.apiCall("GET", "/api/scenarios", nil, &scenarios); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Scenarios:\n\n"
	for _, s := range scenarios {
		result += fmt.Sprintf("• %s (%s)\n  %s\n  NPCs: %d, Vehicles: %d\n\n",
			s.ScenarioID, s.Name, s.Description, s.NPCCount, s.VehicleCount)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleWorldInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Open World - Rules

GRID:
• 100x100 cells, x and y from 0 to 99
• At most one occupant per ground cell
• Airborne vehicles fly at altitude z and never occupy a cell

MOVEMENT:
• move takes a destination and a speed; speed 1 walks, anything faster runs
• If the destination is taken, the occupant lands on a random empty cell nearby
• If no nearby cell is free the move fails with no_space and nothing changes
• Vehicles carry their passengers along

BOARDING:
• An NPC boards a vehicle within boarding range (default 5 cells)
• A vehicle never holds more passengers than its capacity
• Passengers leave the grid while riding and disembark next to the vehicle

MOOD:
• Moods: relaxed, nervous, angry, attack
• alert: police NPCs switch to attack; everyone else becomes nervous or attacks (50/50)
• change_mood sets any mood directly

CAPABILITIES:
• siren: set_siren on/off ("Wee Woo Wee Woo")
• landing_gear: set_landing_gear up/down
• airborne / grounded: where the vehicle may travel

FAILURES:
Failed actions return a code (out_of_bounds, occupied, no_space, too_far,
vehicle_full, not_a_passenger, missing_capability, ...) and leave the world
unchanged. The session continues normally.`

	return mcp.NewToolResultText(instructions), nil
}
