package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pratik-mahalle/watchpost/internal/api/handlers"
	"github.com/pratik-mahalle/watchpost/internal/api/middleware"
	"github.com/pratik-mahalle/watchpost/internal/auth"
	"github.com/pratik-mahalle/watchpost/internal/config"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/pkg/metrics"
)

// Handlers groups the route handlers
type Handlers struct {
	Health    *handlers.HealthHandler
	Alert     *handlers.AlertHandler
	Camera    *handlers.CameraHandler
	Biometric *handlers.BiometricHandler
	Stream    *handlers.StreamHandler
}

// New builds the HTTP API. Routes under /api/v1 require a bearer token when
// AUTH_ENABLED is set.
func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(metrics.Middleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS([]string{cfg.Server.FrontendURL}))

	r.Get("/health", h.Health.Healthz)
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))
		admin := func(r chi.Router) {}
		if cfg.Auth.Enabled {
			r.Use(middleware.Authenticate(cfg.Auth.JWTSecret))
			admin = func(r chi.Router) { r.Use(middleware.RequireRole(auth.RoleAdmin)) }
		}

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.Alert.List)
			r.Post("/", h.Alert.Create)
			r.Get("/statistics", h.Alert.Statistics)
			r.Post("/test", h.Alert.TestNotification)
			if h.Stream != nil {
				r.Get("/stream", h.Stream.Stream)
			}
			r.Get("/{id}", h.Alert.Get)
			r.Put("/{id}", h.Alert.Update)
			r.Post("/{id}/acknowledge", h.Alert.Acknowledge)
			r.Post("/{id}/resolve", h.Alert.Resolve)
			r.Group(func(r chi.Router) {
				admin(r)
				r.Delete("/{id}", h.Alert.Delete)
				r.Post("/cleanup", h.Alert.Cleanup)
			})
		})

		r.Route("/cameras", func(r chi.Router) {
			r.Get("/", h.Camera.List)
			r.Get("/{id}", h.Camera.Get)
			r.Group(func(r chi.Router) {
				admin(r)
				r.Post("/", h.Camera.Add)
				r.Delete("/{id}", h.Camera.Remove)
			})
		})

		r.Route("/biometric", func(r chi.Router) {
			r.Post("/register/{modality}", h.Biometric.Register)
			r.Post("/authenticate/multi-modal", h.Biometric.AuthenticateMultiModal)
			r.Post("/authenticate/{modality}", h.Biometric.Authenticate)
			r.Post("/liveness", h.Biometric.Liveness)
		})
	})

	return r
}
