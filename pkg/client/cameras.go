package client

import (
	"context"
	"fmt"
	"net/http"
)

// CameraService handles camera monitor API calls
type CameraService struct {
	client *Client
}

// List returns every monitor
func (s *CameraService) List(ctx context.Context) ([]CameraStatus, error) {
	var out struct {
		Cameras []CameraStatus `json:"cameras"`
	}
	if _, err := s.client.do(ctx, http.MethodGet, "/api/v1/cameras", nil, &out); err != nil {
		return nil, err
	}
	return out.Cameras, nil
}

// Add starts monitoring a camera
func (s *CameraService) Add(ctx context.Context, cfg CameraConfig) (*CameraStatus, error) {
	var out CameraStatus
	if _, err := s.client.do(ctx, http.MethodPost, "/api/v1/cameras", cfg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one monitor
func (s *CameraService) Get(ctx context.Context, id int64) (*CameraStatus, error) {
	var out CameraStatus
	if _, err := s.client.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/cameras/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove stops a monitor
func (s *CameraService) Remove(ctx context.Context, id int64) error {
	_, err := s.client.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/cameras/%d", id), nil, nil)
	return err
}
