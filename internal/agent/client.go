package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to a running agent.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for the agent listening on addr.
func NewClient(addr string) *Client {
	return &Client{
		baseURL:    "http://" + addr,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Token returns the agent's current access token.
func (c *Client) Token(ctx context.Context) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.get(ctx, "/v1/token", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Session returns the agent's session status.
func (c *Client) Session(ctx context.Context) (*SessionResponse, error) {
	var resp SessionResponse
	if err := c.get(ctx, "/v1/session", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// APIError is a non-2xx agent response.
type APIError struct {
	StatusCode int
	Code       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("agent returned %d: %s", e.StatusCode, e.Code)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Code: e.Error}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
