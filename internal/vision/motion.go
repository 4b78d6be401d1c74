package vision

import (
	"image"
	"math"
)

// Motion model defaults
const (
	DefaultLearningRate  = 0.05
	DefaultDiffThreshold = 25
)

// RunningAverage is a background model that blends every frame into a
// per-pixel running mean. A pixel is foreground when it differs from the
// mean by more than the threshold. Not safe for concurrent use; each
// monitor owns its model.
type RunningAverage struct {
	alpha      float64
	threshold  float64
	background []float64
	w, h       int
}

// NewRunningAverage creates a motion model. Non-positive arguments fall
// back to the defaults.
func NewRunningAverage(learningRate float64, threshold float64) *RunningAverage {
	if learningRate <= 0 || learningRate > 1 {
		learningRate = DefaultLearningRate
	}
	if threshold <= 0 {
		threshold = DefaultDiffThreshold
	}
	return &RunningAverage{alpha: learningRate, threshold: threshold}
}

// Apply returns the fraction of foreground pixels in img and folds img into
// the background. The first frame, or a frame of a new size, seeds the
// background and reports no motion.
func (m *RunningAverage) Apply(img image.Image) float64 {
	g := ToGray(img)
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	if m.background == nil || w != m.w || h != m.h {
		m.w, m.h = w, h
		m.background = make([]float64, w*h)
		for y := 0; y < h; y++ {
			for x, p := range g.Pix[y*g.Stride : y*g.Stride+w] {
				m.background[y*w+x] = float64(p)
			}
		}
		return 0
	}

	foreground := 0
	for y := 0; y < h; y++ {
		for x, p := range g.Pix[y*g.Stride : y*g.Stride+w] {
			i := y*w + x
			v := float64(p)
			if math.Abs(v-m.background[i]) > m.threshold {
				foreground++
			}
			m.background[i] += m.alpha * (v - m.background[i])
		}
	}
	return float64(foreground) / float64(w*h)
}

// Reset drops the background
func (m *RunningAverage) Reset() {
	m.background = nil
	m.w, m.h = 0, 0
}
