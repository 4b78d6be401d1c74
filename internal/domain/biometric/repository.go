package biometric

import (
	"context"
	"image"
)

// TemplateStore holds enrolled templates
type TemplateStore interface {
	// Put stores or replaces the template of (modality, user)
	Put(ctx context.Context, t Template) error

	// Get returns the template of one user
	Get(ctx context.Context, m Modality, userID int64) (Template, bool, error)

	// List returns every template of a modality
	List(ctx context.Context, m Modality) ([]Template, error)

	// Close releases the store
	Close() error
}

// FaceEncoder extracts one embedding per face found in an image
type FaceEncoder interface {
	Encode(ctx context.Context, img image.Image) ([][]float64, error)
}
