package camera

import (
	"image"
	"math"
	"time"
)

// State of a camera monitor
type State string

const (
	StateInitializing State = "initializing"
	StateRunning      State = "running"
	StateStopped      State = "stopped"
)

// Config describes one monitored camera
type Config struct {
	ID       int64   `json:"id" validate:"required,gt=0"`
	Name     string  `json:"name" validate:"required,max=128"`
	Source   string  `json:"source" validate:"required"`
	Location *string `json:"location,omitempty"`
	// FPS overrides the service frame rate when positive
	FPS float64 `json:"fps,omitempty" validate:"gte=0"`
}

// Frame is one captured image
type Frame struct {
	CameraID   int64
	Seq        uint64
	CapturedAt time.Time
	Image      image.Image
}

// DetectionResult is what a DetectionEngine reports for a frame
type DetectionResult struct {
	EmergencyDetected bool               `json:"emergency_detected"`
	ConfidenceScores  map[string]float64 `json:"confidence_scores"`
	Description       string             `json:"description"`
	Extra             map[string]any     `json:"extra,omitempty"`
}

// Normalized maps engine scores onto [0,1]. Engines that report on a
// 0-100 scale are divided down; anything else out of range is clamped.
func (d DetectionResult) Normalized() DetectionResult {
	if len(d.ConfidenceScores) == 0 {
		return d
	}
	maxScore := 0.0
	inRange := true
	for _, v := range d.ConfidenceScores {
		if math.IsNaN(v) || v < 0 || v > 1 {
			inRange = false
		}
		if v > maxScore {
			maxScore = v
		}
	}
	if inRange {
		return d
	}

	scale := 1.0
	if maxScore > 1 && maxScore <= 100 {
		scale = 100
	}
	scores := make(map[string]float64, len(d.ConfidenceScores))
	for k, v := range d.ConfidenceScores {
		switch {
		case math.IsNaN(v), v < 0:
			v = 0
		default:
			v = math.Min(v/scale, 1)
		}
		scores[k] = v
	}
	d.ConfidenceScores = scores
	return d
}

// Analysis converts the result into the AI analysis payload stored on
// alerts. Scores are normalized first.
func (d DetectionResult) Analysis() map[string]any {
	d = d.Normalized()
	scores := make(map[string]any, len(d.ConfidenceScores))
	for k, v := range d.ConfidenceScores {
		scores[k] = v
	}
	out := map[string]any{
		"emergency_detected": d.EmergencyDetected,
		"confidence_scores":  scores,
		"description":        d.Description,
	}
	for k, v := range d.Extra {
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	return out
}

// Status is a point-in-time view of a monitor
type Status struct {
	Config          Config     `json:"camera"`
	State           State      `json:"state"`
	StartedAt       time.Time  `json:"started_at"`
	StoppedAt       *time.Time `json:"stopped_at,omitempty"`
	FramesProcessed uint64     `json:"frames_processed"`
	ReadErrors      uint64     `json:"read_errors"`
	MotionEvents    uint64     `json:"motion_events"`
	EmergencyEvents uint64     `json:"emergency_events"`
	LastFrameAt     *time.Time `json:"last_frame_at,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
}
