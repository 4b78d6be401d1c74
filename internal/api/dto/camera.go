package dto

import "github.com/pratik-mahalle/watchpost/internal/domain/camera"

// CameraListResponse lists monitor snapshots
type CameraListResponse struct {
	Cameras []camera.Status `json:"cameras"`
	Count   int             `json:"count"`
}
