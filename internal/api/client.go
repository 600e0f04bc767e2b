package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"revoice/internal/services"
)

// Client reads the daemon's operator API. Used by the CLI status and session
// commands; reads are quick, so unlike the processing gateway this client
// carries a short timeout.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient targets a daemon at the given bind address or URL.
func NewClient(bind string) *Client {
	base := strings.TrimRight(bind, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Status fetches the per-stage pipeline view.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse
	if err := c.get(ctx, "/api/status", &resp); err != nil {
		return StatusResponse{}, err
	}
	return resp, nil
}

// Session fetches the full session projection. Returns nil with no error
// when no session exists yet.
func (c *Client) Session(ctx context.Context) (*SessionView, error) {
	var view *SessionView
	if err := c.get(ctx, "/api/session", &view); err != nil {
		return nil, err
	}
	return view, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return services.Wrap(services.ErrExternalCall, "api", "build request", "", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalCall, "api", "request", "daemon unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var payload ErrorPayload
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil && payload.Error != "" {
			return services.Wrap(services.ErrExternalCall, "api", "request", payload.Error, nil)
		}
		return services.Wrap(services.ErrExternalCall, "api", "request", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternalCall, "api", "decode response", "", err)
	}
	return nil
}
