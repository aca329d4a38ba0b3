// Package client provides an HTTP client for the sitepanel server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sitepanel/sitepanel/internal/persona"
	"github.com/sitepanel/sitepanel/internal/service"
)

// Client talks to the sitepanel HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. If baseURL is empty, SITEPANEL_SERVER_URL is
// consulted, then localhost:8585. Timeout can be configured via
// SITEPANEL_CLIENT_TIMEOUT (default 10m; runs are slow by design).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("SITEPANEL_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8585"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	timeout := 10 * time.Minute
	if t := os.Getenv("SITEPANEL_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// AnalysisRequest mirrors the server's POST /api/analyses body.
type AnalysisRequest struct {
	URL     string           `json:"url"`
	Persona string           `json:"persona,omitempty"`
	Inline  *persona.Persona `json:"inline_persona,omitempty"`
}

// FocusGroupRequest mirrors the server's POST /api/focus-groups body.
type FocusGroupRequest struct {
	URL      string            `json:"url"`
	Personas []string          `json:"personas,omitempty"`
	Inline   []persona.Persona `json:"inline_personas,omitempty"`
}

type jobCreatedResponse struct {
	JobID string `json:"job_id"`
}

// StartAnalysis submits a single-persona analysis and returns the job ID.
func (c *Client) StartAnalysis(ctx context.Context, req AnalysisRequest) (string, error) {
	var resp jobCreatedResponse
	if err := c.post(ctx, "/api/analyses", req, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// StartFocusGroup submits a focus group run and returns the job ID.
func (c *Client) StartFocusGroup(ctx context.Context, req FocusGroupRequest) (string, error) {
	var resp jobCreatedResponse
	if err := c.post(ctx, "/api/focus-groups", req, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// GetJob fetches one job snapshot.
func (c *Client) GetJob(ctx context.Context, id string) (*service.JobSnapshot, error) {
	var snap service.JobSnapshot
	if err := c.get(ctx, "/api/jobs/"+id, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListJobs fetches all job snapshots, most recent first.
func (c *Client) ListJobs(ctx context.Context) ([]service.JobSnapshot, error) {
	var jobs []service.JobSnapshot
	if err := c.get(ctx, "/api/jobs", &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// WatchJob streams job snapshots over the websocket endpoint, invoking
// onUpdate for each one until the job reaches a terminal state, the
// context is cancelled, or the connection drops. Returns the final
// snapshot seen.
func (c *Client) WatchJob(ctx context.Context, id string, onUpdate func(service.JobSnapshot)) (*service.JobSnapshot, error) {
	wsURL := strings.Replace(c.baseURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL += "/api/jobs/" + id + "/ws"

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	// Close the connection when the context ends so reads unblock.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	var last *service.JobSnapshot
	for {
		var snap service.JobSnapshot
		if err := conn.ReadJSON(&snap); err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && last != nil {
				return last, nil
			}
			return last, fmt.Errorf("read snapshot: %w", err)
		}
		last = &snap
		if onUpdate != nil {
			onUpdate(snap)
		}
		if snap.Status == service.JobStatusCompleted || snap.Status == service.JobStatusFailed {
			return last, nil
		}
	}
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result, http.StatusAccepted, http.StatusOK)
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, result, http.StatusOK)
}

func (c *Client) do(req *http.Request, result any, okStatuses ...int) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	ok := false
	for _, status := range okStatuses {
		if resp.StatusCode == status {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("server error: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
