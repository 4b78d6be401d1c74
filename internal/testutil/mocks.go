package testutil

import (
	"context"
	"image"
	"io"
	"sync"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/domain/camera"
	"github.com/pratik-mahalle/watchpost/internal/domain/notification"
)

// MockTransport is a mock implementation of notification.Transport
type MockTransport struct {
	Ch        notification.Channel
	Delivered bool
	Err       error
	Panic     bool
	// Delay blocks Send until it elapses or ctx ends
	Delay time.Duration

	mu       sync.Mutex
	payloads []*notification.Payload
}

func NewMockTransport(ch notification.Channel, delivered bool) *MockTransport {
	return &MockTransport{Ch: ch, Delivered: delivered}
}

func (m *MockTransport) Channel() notification.Channel {
	return m.Ch
}

func (m *MockTransport) Send(ctx context.Context, p *notification.Payload) (bool, error) {
	m.mu.Lock()
	m.payloads = append(m.payloads, p)
	m.mu.Unlock()

	if m.Panic {
		panic("transport exploded")
	}
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return m.Delivered, m.Err
}

// Payloads returns every payload sent so far
func (m *MockTransport) Payloads() []*notification.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*notification.Payload(nil), m.payloads...)
}

// MockDispatcher is a mock implementation of notification.Dispatcher
type MockDispatcher struct {
	// Outcomes is reported to onResult for every fanned out alert
	Outcomes map[notification.Channel]bool
	TestErr  error
	// Block, when set, holds FanOut until it is closed or ctx ends
	Block chan struct{}

	mu     sync.Mutex
	alerts []*alert.Alert
}

func NewMockDispatcher(outcomes map[notification.Channel]bool) *MockDispatcher {
	return &MockDispatcher{Outcomes: outcomes}
}

func (m *MockDispatcher) FanOut(ctx context.Context, a *alert.Alert, onResult func(notification.Record)) []notification.Record {
	m.mu.Lock()
	m.alerts = append(m.alerts, a)
	m.mu.Unlock()

	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil
		}
	}

	var records []notification.Record
	for _, ch := range notification.Channels {
		delivered, ok := m.Outcomes[ch]
		if !ok {
			continue
		}
		rec := notification.Record{Channel: ch, Delivered: delivered}
		records = append(records, rec)
		if onResult != nil {
			onResult(rec)
		}
	}
	return records
}

func (m *MockDispatcher) SendTestNotification(ctx context.Context, channel string) (map[string]bool, error) {
	if m.TestErr != nil {
		return nil, m.TestErr
	}
	out := make(map[string]bool)
	for ch, ok := range m.Outcomes {
		if channel == notification.ChannelAll || string(ch) == channel {
			out[string(ch)] = ok
		}
	}
	return out, nil
}

// Alerts returns every alert handed to FanOut
func (m *MockDispatcher) Alerts() []*alert.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*alert.Alert(nil), m.alerts...)
}

// MockAlertStore wraps a real store and can fail inserts
type MockAlertStore struct {
	alert.Store
	InsertError error
}

func (m *MockAlertStore) Insert(ctx context.Context, a *alert.Alert) (*alert.Alert, error) {
	if m.InsertError != nil {
		return nil, m.InsertError
	}
	return m.Store.Insert(ctx, a)
}

// MockCaptureSource is a mock implementation of camera.CaptureSource. It
// replays Steps in order, then returns io.EOF, or blocks until Close when
// Hold is set.
type MockCaptureSource struct {
	Steps []CaptureStep
	Hold  bool

	mu     sync.Mutex
	next   int
	closed bool
	done   chan struct{}
}

// CaptureStep is one Read result
type CaptureStep struct {
	Image image.Image
	Err   error
}

func NewMockCaptureSource(steps ...CaptureStep) *MockCaptureSource {
	return &MockCaptureSource{Steps: steps, done: make(chan struct{})}
}

func (m *MockCaptureSource) Read() (image.Image, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, io.EOF
	}
	if m.next < len(m.Steps) {
		step := m.Steps[m.next]
		m.next++
		m.mu.Unlock()
		return step.Image, step.Err
	}
	hold := m.Hold
	m.mu.Unlock()

	if hold {
		<-m.done
	}
	return nil, io.EOF
}

func (m *MockCaptureSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Closed reports whether Close was called
func (m *MockCaptureSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Reads returns how many steps were consumed
func (m *MockCaptureSource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next
}

// MockSourceFactory hands out preset sources by camera id
type MockSourceFactory struct {
	Sources map[int64]camera.CaptureSource
	Err     error
}

func (m *MockSourceFactory) Open(ctx context.Context, cfg camera.Config) (camera.CaptureSource, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	src, ok := m.Sources[cfg.ID]
	if !ok {
		return NewMockCaptureSource(), nil
	}
	return src, nil
}

// MockDetectionEngine is a mock implementation of camera.DetectionEngine
type MockDetectionEngine struct {
	Result camera.DetectionResult
	Err    error

	mu    sync.Mutex
	calls int
}

func (m *MockDetectionEngine) Analyze(ctx context.Context, f camera.Frame) (camera.DetectionResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.Result, m.Err
}

// Calls returns how many frames were analysed
func (m *MockDetectionEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockFrameStore is a mock implementation of camera.FrameStore
type MockFrameStore struct {
	Err error

	mu    sync.Mutex
	saved []string
}

func (m *MockFrameStore) Save(ctx context.Context, kind string, cameraID int64, at time.Time, img image.Image) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	path := "/frames/" + kind + "/" + at.UTC().Format("20060102_150405") + ".jpg"
	m.mu.Lock()
	m.saved = append(m.saved, path)
	m.mu.Unlock()
	return path, nil
}

// Saved returns the paths written so far
func (m *MockFrameStore) Saved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.saved...)
}

// MockAlertCreator is a mock implementation of camera.AlertCreator
type MockAlertCreator struct {
	Err error

	mu     sync.Mutex
	inputs []alert.Input
}

func (m *MockAlertCreator) CreateAlert(ctx context.Context, in alert.Input) (*alert.Alert, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, in)
	id := int64(len(m.inputs))
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return &alert.Alert{ID: id, Type: in.Type, Severity: in.Severity, Title: in.Title, Status: alert.StatusActive}, nil
}

// Inputs returns every CreateAlert input received
func (m *MockAlertCreator) Inputs() []alert.Input {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]alert.Input(nil), m.inputs...)
}

// MockFaceEncoder is a mock implementation of biometric.FaceEncoder
type MockFaceEncoder struct {
	Faces [][]float64
	Err   error
}

func (m *MockFaceEncoder) Encode(ctx context.Context, img image.Image) ([][]float64, error) {
	return m.Faces, m.Err
}

// MockPublisher records published alert events
type MockPublisher struct {
	mu     sync.Mutex
	events []alert.Event
}

// Publish implements alert.Publisher
func (m *MockPublisher) Publish(e alert.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Types returns the published event types in order
func (m *MockPublisher) Types() []alert.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]alert.EventType, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}
