package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veerdrishti/veerdrishti/internal/alert"
	"github.com/veerdrishti/veerdrishti/internal/audit"
	"github.com/veerdrishti/veerdrishti/internal/api"
	"github.com/veerdrishti/veerdrishti/internal/api/handler"
	"github.com/veerdrishti/veerdrishti/internal/camera"
	"github.com/veerdrishti/veerdrishti/internal/classifier"
	"github.com/veerdrishti/veerdrishti/internal/config"
	"github.com/veerdrishti/veerdrishti/internal/database"
	"github.com/veerdrishti/veerdrishti/internal/gallery"
	"github.com/veerdrishti/veerdrishti/internal/live"
	"github.com/veerdrishti/veerdrishti/internal/opencv"
	"github.com/veerdrishti/veerdrishti/internal/repository"
	"github.com/veerdrishti/veerdrishti/internal/retention"
	"github.com/veerdrishti/veerdrishti/internal/service"
	"github.com/veerdrishti/veerdrishti/internal/telemetry"
	"github.com/veerdrishti/veerdrishti/internal/vision"
	"github.com/veerdrishti/veerdrishti/internal/webhook"
	"github.com/veerdrishti/veerdrishti/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLoggerWith(cfg.Environment, config.LoggerOptions{Level: cfg.LogLevel})
	slog.SetDefault(logger)

	logger.Info("starting VeerDrishti",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("camera", cfg.CameraSource),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Detectors
	faceDetector, err := opencv.NewCascadeFaceDetector(cfg.HaarCascadePath, logger)
	if err != nil {
		return fmt.Errorf("failed to load face detector: %w", err)
	}
	defer func() { _ = faceDetector.Close() }()

	var people vision.PersonDetector
	hog, err := opencv.NewHOGPersonDetector(logger)
	if err != nil {
		logger.Warn("person detector unavailable, searching whole frames", slog.Any("error", err))
	} else {
		defer func() { _ = hog.Close() }()
		people = hog
	}
	pipeline := vision.NewPipeline(faceDetector, people, logger)

	// Gallery and classifier
	store := gallery.New(cfg.FacesDir(), pipeline, logger)
	if err := store.Init(); err != nil {
		return err
	}
	models := classifier.New(store, cfg.ModelPath(), cfg.LabelsPath(), logger).
		WithThreshold(cfg.MatchThreshold)
	store.WithTrainer(models)
	if err := models.Load(); err != nil {
		logger.Warn("stored classifier unusable, retraining", slog.Any("error", err))
	}
	if !models.Stats().Trained {
		if err := models.Train(ctx); err != nil {
			logger.Error("initial training failed", slog.Any("error", err))
		}
	}

	// Detection history
	var history *repository.DetectionRepository
	if cfg.HistoryEnabled() {
		pool, err := openHistory(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		history = repository.NewDetectionRepository(pool)
		logger.Info("detection history enabled")

		if cfg.HistoryRetention > 0 {
			pruner := retention.NewPruner(history, logger, cfg.PruneInterval, cfg.HistoryRetention)
			go pruner.Start(ctx)
			defer pruner.Stop()
		}
	}

	// Websocket hub
	hub := ws.NewHub()
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go hub.Run(hubCtx)

	// Alerts
	notifiers := []alert.Notifier{alert.NewHubNotifier(hub)}
	if cfg.WebhookURL != "" {
		sender := webhook.NewSender(cfg.WebhookURL, cfg.WebhookSecret, logger)
		notifiers = append(notifiers, alert.NewWebhookNotifier(sender))
		logger.Info("alert webhook enabled", slog.String("url", cfg.WebhookURL))
	}
	var recorder alert.Recorder
	if history != nil {
		recorder = history
	}
	dispatcher := alert.NewDispatcher(alert.NewEngine(cfg.AlertCooldown), recorder, logger, notifiers...)
	dispatcher.Start(context.Background())

	// Live loop
	controller := live.NewController(pipeline, models, live.Options{
		Interval:    cfg.CycleInterval,
		RetryDelay:  cfg.FrameRetryDelay,
		StopTimeout: cfg.StopTimeout,
		JPEGQuality: cfg.JPEGQuality,
	}, logger)
	controller.Subscribe(hub)
	controller.Subscribe(dispatcher)

	// The device is opened lazily by the loop; only a misconfigured source fails here.
	source, err := camera.NewSource(cfg, opencv.OpenCamera)
	if err != nil {
		dispatcher.Stop()
		return fmt.Errorf("failed to configure camera: %w", err)
	}
	controller.Start(source)

	// Telemetry
	sim := telemetry.NewSimulator(cfg.TelemetryInterval, time.Now().UnixNano(), logger)
	sim.Start(context.Background())

	// HTTP
	faces := service.NewFaceService(store, models, logger).
		WithEvents(hub).
		WithAudit(audit.NewSlogLogger(logger))
	historySvc := service.NewHistoryService(nil)
	if history != nil {
		historySvc = service.NewHistoryService(history)
	}

	router := api.NewRouter(logger, &api.Dependencies{
		Faces:           handler.NewFaceHandler(faces, logger),
		Live:            controller,
		Models:          faces,
		History:         historySvc,
		Soldiers:        sim,
		Hub:             hub,
		EnrollRateLimit: cfg.EnrollRateLimit,
	})
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		serveErr = fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down...")
	controller.Stop()
	sim.Stop()
	dispatcher.Stop()
	cancelHub()

	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped", slog.Int64("alerts_dropped", dispatcher.Dropped()))
	return serveErr
}

func openHistory(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}
	if err := database.MigrateUp(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return pool, nil
}
