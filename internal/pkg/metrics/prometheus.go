package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchpost",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "watchpost",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "watchpost",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Alert metrics
	alertsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchpost",
			Subsystem: "alert",
			Name:      "created_total",
			Help:      "Total number of alerts created",
		},
		[]string{"type", "severity"},
	)

	alertsSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchpost",
			Subsystem: "alert",
			Name:      "suppressed_total",
			Help:      "Total number of alerts suppressed by the cooldown window",
		},
		[]string{"type"},
	)

	alertTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchpost",
			Subsystem: "alert",
			Name:      "transitions_total",
			Help:      "Alert lifecycle transitions",
		},
		[]string{"to"},
	)

	alertResponseTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "watchpost",
			Subsystem: "alert",
			Name:      "response_time_seconds",
			Help:      "Time from creation or acknowledgement to resolution",
			Buckets:   []float64{10, 30, 60, 300, 900, 1800, 3600, 14400, 86400},
		},
	)

	alertsPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "watchpost",
			Subsystem: "alert",
			Name:      "pruned_total",
			Help:      "Resolved alerts removed by retention",
		},
	)

	// Notification metrics
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchpost",
			Subsystem: "notification",
			Name:      "deliveries_total",
			Help:      "Notification delivery attempts by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	notificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "watchpost",
			Subsystem: "notification",
			Name:      "delivery_duration_seconds",
			Help:      "Duration of a channel delivery in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"channel"},
	)

	// Camera metrics
	framesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchpost",
			Subsystem: "camera",
			Name:      "frames_processed_total",
			Help:      "Frames processed per camera",
		},
		[]string{"camera"},
	)

	frameReadErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchpost",
			Subsystem: "camera",
			Name:      "read_errors_total",
			Help:      "Transient frame read failures per camera",
		},
		[]string{"camera"},
	)

	cameraEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchpost",
			Subsystem: "camera",
			Name:      "events_total",
			Help:      "Motion and emergency events per camera",
		},
		[]string{"camera", "kind"},
	)

	monitorsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "watchpost",
			Subsystem: "camera",
			Name:      "monitors_running",
			Help:      "Number of camera monitors currently running",
		},
	)

	// Biometric metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchpost",
			Subsystem: "biometric",
			Name:      "attempts_total",
			Help:      "Biometric authentication attempts by modality and outcome",
		},
		[]string{"modality", "outcome"},
	)

	fusionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchpost",
			Subsystem: "biometric",
			Name:      "fusion_failures_total",
			Help:      "Multi-modal fusion failures by reason",
		},
		[]string{"reason"},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "watchpost",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "table"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		// Get route pattern from chi
		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAlertCreated records a newly created alert
func RecordAlertCreated(alertType, severity string) {
	alertsCreatedTotal.WithLabelValues(alertType, severity).Inc()
}

// RecordAlertSuppressed records an alert dropped by the cooldown window
func RecordAlertSuppressed(alertType string) {
	alertsSuppressedTotal.WithLabelValues(alertType).Inc()
}

// RecordAlertTransition records a lifecycle transition
func RecordAlertTransition(to string) {
	alertTransitionsTotal.WithLabelValues(to).Inc()
}

// RecordResponseTime records the response time of a resolved alert
func RecordResponseTime(seconds float64) {
	alertResponseTime.Observe(seconds)
}

// RecordAlertsPruned records alerts removed by retention
func RecordAlertsPruned(n int) {
	alertsPrunedTotal.Add(float64(n))
}

// RecordNotification records one channel delivery attempt
func RecordNotification(channel string, delivered bool, duration time.Duration) {
	outcome := "failed"
	if delivered {
		outcome = "delivered"
	}
	notificationsTotal.WithLabelValues(channel, outcome).Inc()
	notificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordFrame records a processed frame
func RecordFrame(cameraID int64) {
	framesProcessedTotal.WithLabelValues(strconv.FormatInt(cameraID, 10)).Inc()
}

// RecordFrameReadError records a transient capture failure
func RecordFrameReadError(cameraID int64) {
	frameReadErrorsTotal.WithLabelValues(strconv.FormatInt(cameraID, 10)).Inc()
}

// RecordCameraEvent records a motion or emergency event
func RecordCameraEvent(cameraID int64, kind string) {
	cameraEventsTotal.WithLabelValues(strconv.FormatInt(cameraID, 10), kind).Inc()
}

// IncMonitors increments the running monitor gauge
func IncMonitors() {
	monitorsRunning.Inc()
}

// DecMonitors decrements the running monitor gauge
func DecMonitors() {
	monitorsRunning.Dec()
}

// RecordAuthAttempt records a single-modality authentication attempt
func RecordAuthAttempt(modality string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	authAttemptsTotal.WithLabelValues(modality, outcome).Inc()
}

// RecordFusionFailure records a failed fusion decision
func RecordFusionFailure(reason string) {
	fusionFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation, table string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}
