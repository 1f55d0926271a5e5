// Package tui is the live monitor dashboard: a Bubble Tea program that
// polls a running scheduler's HTTP introspection surface
// (internal/httpapi) and renders window size per scope and worker pool
// occupancy. Grounded on the teacher's internal/tui (Bubble Tea
// Model/Update/View loop, lipgloss styling, a polling API Client), but
// trimmed to the live-dashboard shape only: this scheduler has no
// persisted, user-editable task list for a command bar or detail pane
// to operate on (see DESIGN.md), so only app.go's polling loop is kept
// and retargeted; rows are formatted with fmt and lipgloss styles.
package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultClientTimeout mirrors the teacher's tui.Client timeout.
const DefaultClientTimeout = 5 * time.Second

// Stats is the /stats response shape.
type Stats struct {
	AsyncInFlight int    `json:"async_in_flight"`
	SyncInFlight  int    `json:"sync_in_flight"`
	Version       string `json:"version"`
	Time          string `json:"time"`
}

// Scope is one /scopes entry.
type Scope struct {
	ScopeID    int64 `json:"scope_id"`
	ParentID   int64 `json:"parent_id"`
	WindowSize int   `json:"window_size"`
	NextTaskID int64 `json:"next_task_id"`
	ScanDone   bool  `json:"scan_done"`
}

// Client wraps HTTP calls to a running internal/httpapi.Server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client against baseURL (e.g. "http://127.0.0.1:7470").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultClientTimeout},
	}
}

// FetchStats fetches the executor occupancy snapshot.
func (c *Client) FetchStats() (Stats, error) {
	var out Stats
	if err := c.getJSON("/stats", &out); err != nil {
		return Stats{}, err
	}
	return out, nil
}

// FetchScopes fetches the live per-scope snapshot.
func (c *Client) FetchScopes() ([]Scope, error) {
	var out []Scope
	if err := c.getJSON("/scopes", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getJSON(path string, out any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("tui: %s: %s", path, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
