package client

import (
	"context"
	"net/http"
)

// Health checks that the server is alive
func (c *Client) Health(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	if _, err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ready runs the server readiness checks
func (c *Client) Ready(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	if _, err := c.do(ctx, http.MethodGet, "/readyz", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
