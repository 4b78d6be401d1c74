package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pratik-mahalle/watchpost/internal/api/handlers"
	"github.com/pratik-mahalle/watchpost/internal/api/router"
	"github.com/pratik-mahalle/watchpost/internal/config"
	"github.com/pratik-mahalle/watchpost/internal/detection"
	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/framestore"
	"github.com/pratik-mahalle/watchpost/internal/notify"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/pkg/validator"
	"github.com/pratik-mahalle/watchpost/internal/repository/memory"
	"github.com/pratik-mahalle/watchpost/internal/repository/postgres"
	"github.com/pratik-mahalle/watchpost/internal/repository/redis"
	"github.com/pratik-mahalle/watchpost/internal/services"
	"github.com/pratik-mahalle/watchpost/internal/vision"
	"github.com/pratik-mahalle/watchpost/internal/worker"
	"github.com/pratik-mahalle/watchpost/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.FatalWithErr(err, "Server exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	checks := map[string]handlers.Check{}

	// Alert store
	var store alert.Store
	if cfg.Database.Driver == "memory" {
		store = memory.NewAlertStore()
		log.Info("Using in-memory alert store")
	} else {
		db, err := postgres.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		files, err := migrations.GetFS(db.Driver)
		if err != nil {
			return err
		}
		applied, err := postgres.RunMigrations(db, files)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.WithFields(map[string]interface{}{
			"driver":  db.Driver,
			"applied": len(applied),
		}).Info("Database ready")

		store = postgres.NewAlertStore(db)
		checks["database"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	}

	// Cooldown window
	var cooldowns alert.CooldownStore
	if cfg.Redis.Enabled {
		client := redis.NewClient(cfg.Redis)
		defer client.Close()
		rc := redis.NewCooldownStore(client, cfg.Redis.KeyPrefix)
		if err := rc.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr(), err)
		}
		cooldowns = rc
		checks["redis"] = rc.Ping
		log.WithFields(map[string]interface{}{"addr": cfg.Redis.Addr()}).Info("Using redis cooldown store")
	} else {
		cooldowns = memory.NewCooldownStore()
	}

	// Notifications and alerts
	transports := notify.FromConfig(cfg.Notification, log)
	dispatcher := services.NewNotificationService(transports, cfg.Notification.Timeout, log)
	hub := handlers.NewEventHub(log)
	defer hub.Close()
	alertService := services.NewAlertService(store, cooldowns, dispatcher, cfg.Alert, log, services.WithPublisher(hub))

	// Cameras
	engine, err := detection.FromConfig(cfg.Detection, log)
	if err != nil {
		return err
	}
	frames, err := framestore.FromConfig(ctx, cfg.Camera)
	if err != nil {
		return fmt.Errorf("failed to initialise frame store: %w", err)
	}
	if closer, ok := frames.(io.Closer); ok {
		defer closer.Close()
	}
	cameraService := services.NewCameraService(
		vision.DirectorySourceFactory{Root: cfg.Camera.SourceRoot},
		engine,
		frames,
		alertService,
		cfg.Camera,
		log,
	)

	// Biometrics
	templates := memory.NewTemplateStore()
	defer templates.Close()
	biometricService := services.NewBiometricService(templates, nil, cfg.Biometric, log)

	// Retention
	retention := worker.NewRetentionWorker(alertService, cfg.Alert.RetentionSchedule, cfg.Alert.RetentionDays, log)
	if err := retention.Start(ctx); err != nil {
		return err
	}

	val := validator.New()
	r := router.New(cfg, log, &router.Handlers{
		Health:    handlers.NewHealthHandler(checks, log),
		Alert:     handlers.NewAlertHandler(alertService, log, val, cfg.Alert.DefaultLimit),
		Camera:    handlers.NewCameraHandler(cameraService, log, val),
		Biometric: handlers.NewBiometricHandler(biometricService, log, val),
		Stream:    handlers.NewStreamHandler(hub, log),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	// open event streams would hold Shutdown until its deadline
	srv.RegisterOnShutdown(hub.Close)

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":        srv.Addr,
			"environment": cfg.Server.Environment,
			"detection":   cfg.Detection.Engine,
			"frame_store": cfg.Camera.FrameStore,
			"channels":    len(transports),
		}).Info("Watchpost API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorWithErr(err, "HTTP server shutdown failed")
	}
	retention.Stop()
	if err := cameraService.Shutdown(shutdownCtx); err != nil {
		log.ErrorWithErr(err, "Camera monitors did not stop cleanly")
	}
	if err := alertService.Close(shutdownCtx); err != nil {
		log.ErrorWithErr(err, "Pending notifications were abandoned")
	}

	log.Info("Server stopped")
	return nil
}
