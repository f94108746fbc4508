package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wricardo/mcp-training/openworld/game/service"
	"github.com/wricardo/mcp-training/openworld/game/world"
)

// Client drives one session through the REST API
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID returns the session the client is bound to
func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) CreateSession(scenario string) (*world.WorldState, error) {
	var session service.SessionInfo
	if err := c.do(http.MethodPost, "/api/sessions", map[string]string{"scenario_id": scenario}, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = session.ID
	return session.WorldState, nil
}

// Resume binds the client to an existing session and returns its state
func (c *Client) Resume(sessionID string) (*world.WorldState, error) {
	c.sessionID = sessionID
	return c.GetState()
}

func (c *Client) GetState() (*world.WorldState, error) {
	var state world.WorldState
	if err := c.do(http.MethodGet, c.sessionPath("/state"), nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &state, nil
}

func (c *Client) Reset() (*world.WorldState, error) {
	var resp struct {
		Message string            `json:"message"`
		State   *world.WorldState `json:"world_state"`
	}
	if err := c.do(http.MethodPost, c.sessionPath("/reset"), nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.State, nil
}

// Execute sends one planned action. A rejected action comes back as a
// result with Success=false, not as an error.
func (c *Client) Execute(a *Action) (*service.ActionResult, error) {
	var (
		path string
		body interface{}
	)
	switch a.Kind {
	case ActionMove, ActionDrive:
		path = c.sessionPath("/occupants/" + url.PathEscape(a.ActorID) + "/move")
		body = map[string]int{"x": a.To.X, "y": a.To.Y, "z": a.To.Z, "speed": a.Speed}
	case ActionBoard:
		path = c.sessionPath("/vehicles/" + url.PathEscape(a.VehicleID) + "/board")
		body = map[string]string{"npc_id": a.ActorID}
	case ActionDisembark:
		path = c.sessionPath("/vehicles/" + url.PathEscape(a.VehicleID) + "/disembark")
		body = map[string]string{"npc_id": a.ActorID}
	default:
		return nil, fmt.Errorf("unknown action %q", a.Kind)
	}

	var result service.ActionResult
	if err := c.do(http.MethodPost, path, body, &result); err != nil {
		return nil, fmt.Errorf("%s %s: %w", a.Kind, a.ActorID, err)
	}
	return &result, nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
