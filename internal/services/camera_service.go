package services

import (
	"context"
	"fmt"
	"image"
	"io"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/config"
	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/domain/camera"
	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/pkg/metrics"
	"github.com/pratik-mahalle/watchpost/internal/pkg/validator"
	"github.com/pratik-mahalle/watchpost/internal/vision"
)

// Frame kinds persisted by monitors
const (
	frameKindMotion    = "motion"
	frameKindEmergency = "emergency"

	readErrorLogEvery = 10
)

// CameraService implements camera.Service. It runs one Monitor per camera.
type CameraService struct {
	sources   camera.SourceFactory
	newModel  func() camera.MotionModel
	engine    camera.DetectionEngine
	frames    camera.FrameStore
	alerts    camera.AlertCreator
	cfg       config.CameraConfig
	validator *validator.Validator
	logger    *logger.Logger
	now       func() time.Time

	mu       sync.Mutex
	monitors map[int64]*Monitor
	closed   bool
}

// CameraOption customises a CameraService
type CameraOption func(*CameraService)

// WithMotionModel replaces the running-average motion model
func WithMotionModel(newModel func() camera.MotionModel) CameraOption {
	return func(s *CameraService) {
		s.newModel = newModel
	}
}

// WithCameraClock replaces time.Now for frame timestamps
func WithCameraClock(now func() time.Time) CameraOption {
	return func(s *CameraService) {
		s.now = now
	}
}

// NewCameraService creates a camera service. engine and frames may be nil:
// frames are then analysed for motion only and alerts carry no image path.
func NewCameraService(
	sources camera.SourceFactory,
	engine camera.DetectionEngine,
	frames camera.FrameStore,
	alerts camera.AlertCreator,
	cfg config.CameraConfig,
	log *logger.Logger,
	opts ...CameraOption,
) *CameraService {
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	s := &CameraService{
		sources:   sources,
		newModel:  func() camera.MotionModel { return vision.NewRunningAverage(0, 0) },
		engine:    engine,
		frames:    frames,
		alerts:    alerts,
		cfg:       cfg,
		validator: validator.New(),
		logger:    log.Component("cameras"),
		now:       time.Now,
		monitors:  make(map[int64]*Monitor),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCamera opens the camera's source and starts monitoring it. It returns
// once the monitor is running or failed to initialise.
func (s *CameraService) AddCamera(ctx context.Context, cfg camera.Config) error {
	if errs := s.validator.Validate(cfg); errs != nil {
		return errors.Validationf("%s", errs.Error())
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.ServiceUnavailable("camera service is shutting down")
	}
	if existing, ok := s.monitors[cfg.ID]; ok && existing.State() != camera.StateStopped {
		s.mu.Unlock()
		return errors.Validationf("camera %d is already monitored", cfg.ID)
	}
	m := newMonitor(s, cfg)
	s.monitors[cfg.ID] = m
	s.mu.Unlock()

	if err := m.start(ctx); err != nil {
		s.mu.Lock()
		if s.monitors[cfg.ID] == m {
			delete(s.monitors, cfg.ID)
		}
		s.mu.Unlock()
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"camera_id": cfg.ID,
		"name":      cfg.Name,
	}).Info("Camera added")
	return nil
}

// RemoveCamera stops a monitor and waits until its resources are released
func (s *CameraService) RemoveCamera(ctx context.Context, id int64) error {
	s.mu.Lock()
	m, ok := s.monitors[id]
	if ok {
		delete(s.monitors, id)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("camera %d: %w", id, errors.ErrNotFound)
	}
	if err := m.stop(ctx); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"camera_id": id,
	}).Info("Camera removed")
	return nil
}

// Status returns a snapshot of one monitor
func (s *CameraService) Status(id int64) (camera.Status, error) {
	s.mu.Lock()
	m, ok := s.monitors[id]
	s.mu.Unlock()
	if !ok {
		return camera.Status{}, fmt.Errorf("camera %d: %w", id, errors.ErrNotFound)
	}
	return m.Status(), nil
}

// List returns every monitor ordered by camera id
func (s *CameraService) List() []camera.Status {
	s.mu.Lock()
	out := make([]camera.Status, 0, len(s.monitors))
	for _, m := range s.monitors {
		out = append(out, m.Status())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Config.ID < out[j].Config.ID })
	return out
}

// Shutdown stops every monitor and refuses new cameras
func (s *CameraService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	monitors := make([]*Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		monitors = append(monitors, m)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, len(monitors))
	for i, m := range monitors {
		wg.Add(1)
		go func(i int, m *Monitor) {
			defer wg.Done()
			errs[i] = m.stop(ctx)
		}(i, m)
	}
	wg.Wait()

	s.logger.WithFields(map[string]interface{}{
		"cameras": len(monitors),
	}).Info("Camera monitors stopped")
	return errors.Join(errs...)
}

// Monitor owns one camera's capture source and motion model and runs its
// frame loop: Initializing, then Running, then Stopped. Stopped is reported
// only after both are released.
type Monitor struct {
	svc    *CameraService
	cfg    camera.Config
	logger *logger.Logger

	// readLog throttles warnings from a camera that keeps failing
	readLog *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	status camera.Status

	source    camera.CaptureSource
	closeOnce sync.Once

	// owned by the loop goroutine
	model camera.MotionModel
	seq   uint64
}

func newMonitor(s *CameraService, cfg camera.Config) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		svc:     s,
		cfg:     cfg,
		logger:  s.logger.Camera(cfg.ID),
		readLog: s.logger.Camera(cfg.ID).Sampled(readErrorLogEvery),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		status: camera.Status{
			Config:    cfg,
			State:     camera.StateInitializing,
			StartedAt: s.now(),
		},
	}
}

// start initialises the monitor and launches its loop
func (m *Monitor) start(ctx context.Context) error {
	src, err := m.svc.sources.Open(ctx, m.cfg)
	if err != nil {
		m.cancel()
		m.finish(err)
		close(m.done)
		m.logger.WarnWithErr(err, "Failed to open camera source")
		return fmt.Errorf("failed to open camera %d: %w", m.cfg.ID, err)
	}
	m.source = src
	m.model = m.svc.newModel()

	m.setState(camera.StateRunning)
	metrics.IncMonitors()
	go m.run(m.ctx)
	return nil
}

// stop cancels the loop and waits for it to release its resources
func (m *Monitor) stop(ctx context.Context) error {
	m.cancel()
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("camera %d did not stop: %w", m.cfg.ID, ctx.Err())
	}
}

// State returns the current lifecycle state
func (m *Monitor) State() camera.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.State
}

// Status returns a snapshot of the monitor
func (m *Monitor) Status() camera.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.status
	if st.StoppedAt != nil {
		t := *st.StoppedAt
		st.StoppedAt = &t
	}
	if st.LastFrameAt != nil {
		t := *st.LastFrameAt
		st.LastFrameAt = &t
	}
	return st
}

func (m *Monitor) setState(state camera.State) {
	m.mu.Lock()
	m.status.State = state
	m.mu.Unlock()
}

func (m *Monitor) update(fn func(st *camera.Status)) {
	m.mu.Lock()
	fn(&m.status)
	m.mu.Unlock()
}

// finish marks the monitor stopped
func (m *Monitor) finish(cause error) {
	now := m.svc.now()
	m.update(func(st *camera.Status) {
		st.State = camera.StateStopped
		st.StoppedAt = &now
		if cause != nil {
			st.LastError = cause.Error()
		}
	})
}

// closeSource closes the capture source once
func (m *Monitor) closeSource() {
	m.closeOnce.Do(func() {
		if err := m.source.Close(); err != nil {
			m.logger.WarnWithErr(err, "Failed to close camera source")
		}
	})
}

// release closes the source and drops the motion model
func (m *Monitor) release() {
	m.closeSource()
	if m.model != nil {
		m.model.Reset()
		m.model = nil
	}
}

func (m *Monitor) interval() time.Duration {
	fps := m.svc.cfg.FPS
	if m.cfg.FPS > 0 {
		fps = m.cfg.FPS
	}
	return time.Duration(float64(time.Second) / fps)
}

func (m *Monitor) run(ctx context.Context) {
	var cause error
	defer close(m.done)
	defer func() {
		if r := recover(); r != nil {
			cause = fmt.Errorf("monitor panicked: %v", r)
			m.logger.WithFields(map[string]interface{}{
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			}).Error("Camera monitor panicked")
		}
		m.release()
		metrics.DecMonitors()
		m.finish(cause)
		m.logger.Info("Camera monitor stopped")
	}()

	// a blocked Read returns once the source is closed
	stopRead := context.AfterFunc(ctx, m.closeSource)
	defer stopRead()

	m.logger.Info("Camera monitor started")

	ticker := time.NewTicker(m.interval())
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		img, err := m.source.Read()
		if ctx.Err() != nil {
			return
		}
		if err == io.EOF {
			m.logger.Info("Camera source exhausted")
			return
		}
		if err != nil {
			m.readFailed(err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.svc.cfg.RetryDelay):
			}
			continue
		}

		m.processFrame(context.WithoutCancel(ctx), img)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) readFailed(err error) {
	metrics.RecordFrameReadError(m.cfg.ID)
	m.update(func(st *camera.Status) {
		st.ReadErrors++
		st.LastError = err.Error()
	})
	m.readLog.WarnWithErr(err, "Cannot read frame from camera")
}

// processFrame runs motion detection, night enhancement and emergency
// analysis on one frame. ctx is detached from cancellation so a frame
// in progress completes.
func (m *Monitor) processFrame(ctx context.Context, img image.Image) {
	now := m.svc.now()
	m.seq++
	metrics.RecordFrame(m.cfg.ID)
	m.update(func(st *camera.Status) {
		st.FramesProcessed++
		st.LastFrameAt = &now
	})

	if ratio := m.model.Apply(img); ratio > m.svc.cfg.MotionSensitivity {
		m.logger.With("motion_ratio", ratio).Info("Motion detected")
		m.update(func(st *camera.Status) { st.MotionEvents++ })
		metrics.RecordCameraEvent(m.cfg.ID, frameKindMotion)
		m.raise(ctx, frameKindMotion, now, img, alert.Input{
			Type:     alert.TypeMotion,
			Severity: alert.SeverityMedium,
			Title:    fmt.Sprintf("Motion detected on camera %d", m.cfg.ID),
		})
	}

	if m.svc.engine == nil {
		return
	}

	frame := img
	if gray := vision.ToGray(img); vision.Brightness(gray) < m.svc.cfg.NightVisionThreshold {
		frame = vision.Equalize(gray)
	}

	result, err := m.svc.engine.Analyze(ctx, camera.Frame{
		CameraID:   m.cfg.ID,
		Seq:        m.seq,
		CapturedAt: now,
		Image:      frame,
	})
	if err != nil {
		m.logger.WarnWithErr(err, "Frame analysis failed")
		return
	}
	if !result.EmergencyDetected {
		return
	}

	description := result.Description
	if description == "" {
		description = "Unknown emergency"
	}
	m.logger.With("description", description).Warn("Emergency detected")
	m.update(func(st *camera.Status) { st.EmergencyEvents++ })
	metrics.RecordCameraEvent(m.cfg.ID, frameKindEmergency)
	m.raise(ctx, frameKindEmergency, now, frame, alert.Input{
		Type:        alert.TypeEmergency,
		Severity:    alert.SeverityCritical,
		Title:       fmt.Sprintf("Emergency detected on camera %d", m.cfg.ID),
		Description: "AI Analysis: " + description,
		AIAnalysis:  result.Analysis(),
	})
}

// raise saves the frame and creates the alert. A frame that cannot be
// saved still raises the alert, without an image path.
func (m *Monitor) raise(ctx context.Context, kind string, at time.Time, img image.Image, in alert.Input) {
	id := m.cfg.ID
	in.CameraID = &id
	in.Location = m.cfg.Location

	if m.svc.frames != nil {
		path, err := m.svc.frames.Save(ctx, kind, m.cfg.ID, at, img)
		if err != nil {
			m.logger.With("kind", kind).WarnWithErr(err, "Failed to save event frame")
		} else {
			in.ImagePath = path
		}
	}

	a, err := m.svc.alerts.CreateAlert(ctx, in)
	switch {
	case errors.Is(err, errors.ErrSuppressed):
		m.logger.With("kind", kind).Debug("Alert suppressed by cooldown")
	case err != nil:
		m.logger.With("kind", kind).ErrorWithErr(err, "Failed to create alert")
	default:
		m.logger.WithFields(map[string]interface{}{
			"kind":     kind,
			"alert_id": a.ID,
		}).Info("Alert raised")
	}
}
