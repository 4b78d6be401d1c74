// Package framestore persists the frames attached to camera alerts.
package framestore

import (
	"context"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/vision"
)

const jpegQuality = 90

// ObjectKey names an event frame: <kind>/<kind>_<camera>_<YYYYmmdd_HHMMSS>.jpg
func ObjectKey(kind string, cameraID int64, at time.Time) string {
	name := fmt.Sprintf("%s_%d_%s.jpg", kind, cameraID, at.UTC().Format("20060102_150405"))
	return path.Join(kind, name)
}

// Local writes frames below a root directory.
// Safe for concurrent use by several monitors.
type Local struct {
	root  string
	saved atomic.Uint64
}

// NewLocal creates the root directory if needed
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Local{root: root}, nil
}

// Save implements camera.FrameStore and returns the file path
func (l *Local) Save(ctx context.Context, kind string, cameraID int64, at time.Time, img image.Image) (string, error) {
	data, err := vision.EncodeJPEG(img, jpegQuality)
	if err != nil {
		return "", fmt.Errorf("JPEG encode failed: %w", err)
	}

	target := filepath.Join(l.root, filepath.FromSlash(ObjectKey(kind, cameraID, at)))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write frame: %w", err)
	}

	l.saved.Add(1)
	return target, nil
}

// Saved reports how many frames were written
func (l *Local) Saved() uint64 {
	return l.saved.Load()
}
