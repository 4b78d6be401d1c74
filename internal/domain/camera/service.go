package camera

import (
	"context"
	"image"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
)

// CaptureSource yields frames in capture order. Read returns io.EOF once
// the source is exhausted; any other error is transient.
type CaptureSource interface {
	Read() (image.Image, error)
	Close() error
}

// SourceFactory opens the capture source of a camera
type SourceFactory interface {
	Open(ctx context.Context, cfg Config) (CaptureSource, error)
}

// MotionModel keeps a running background and reports the foreground ratio
// of each new frame
type MotionModel interface {
	Apply(img image.Image) float64
	Reset()
}

// DetectionEngine analyses a frame for emergencies
type DetectionEngine interface {
	Analyze(ctx context.Context, f Frame) (DetectionResult, error)
}

// FrameStore persists event frames and returns where they were written
type FrameStore interface {
	Save(ctx context.Context, kind string, cameraID int64, at time.Time, img image.Image) (string, error)
}

// AlertCreator is the part of the alert service the monitor needs
type AlertCreator interface {
	CreateAlert(ctx context.Context, in alert.Input) (*alert.Alert, error)
}

// Service manages one monitor per camera
type Service interface {
	AddCamera(ctx context.Context, cfg Config) error
	RemoveCamera(ctx context.Context, id int64) error
	Status(id int64) (Status, error)
	List() []Status
	Shutdown(ctx context.Context) error
}
