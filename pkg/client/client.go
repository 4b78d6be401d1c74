// Package client is a Go client for the watchpost HTTP API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to a watchpost server
type Client struct {
	http  *resty.Client
	token string
}

// Config holds the client configuration
type Config struct {
	BaseURL string        // e.g. "http://localhost:8080"
	Token   string        // optional bearer token
	Timeout time.Duration // default 30s
}

// envelope is the response wrapper used by every endpoint
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}

// NewClient creates a new API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
	}
	c.SetToken(cfg.Token)
	return c
}

// SetToken sets the bearer token for subsequent requests
func (c *Client) SetToken(token string) {
	c.token = token
	c.http.SetAuthToken(token)
}

// Token returns the current bearer token
func (c *Client) Token() string {
	return c.token
}

// do sends a request and decodes the envelope data into result. Non-2xx
// responses become *APIError. okStatus lists extra statuses whose data is
// still decoded, such as 401 on a failed biometric match.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}, okStatus ...int) (int, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}

	var env envelope
	raw := resp.Body()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return resp.StatusCode(), fmt.Errorf("API error (status %d): %s", resp.StatusCode(), string(raw))
		}
	}

	accepted := !resp.IsError()
	for _, s := range okStatus {
		if resp.StatusCode() == s && env.Error == nil {
			accepted = true
		}
	}
	if !accepted {
		apiErr := env.Error
		if apiErr == nil {
			apiErr = &APIError{Message: resp.Status()}
		}
		apiErr.StatusCode = resp.StatusCode()
		return resp.StatusCode(), apiErr
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return resp.StatusCode(), fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp.StatusCode(), nil
}

// Alerts returns the alert service
func (c *Client) Alerts() *AlertService {
	return &AlertService{client: c}
}

// Cameras returns the camera service
func (c *Client) Cameras() *CameraService {
	return &CameraService{client: c}
}

// Biometrics returns the biometric service
func (c *Client) Biometrics() *BiometricService {
	return &BiometricService{client: c}
}
