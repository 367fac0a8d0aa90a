package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"potholewatch/internal/config"
	"potholewatch/internal/logger"
	"potholewatch/internal/repository/sqlite"
	"potholewatch/internal/route"
	"potholewatch/internal/service/camera"
	"potholewatch/internal/service/detection"
	"potholewatch/internal/service/dispatch"
	"potholewatch/internal/service/location"
	"potholewatch/internal/service/report"
	"potholewatch/internal/service/session"
	"potholewatch/internal/service/storage"
	"potholewatch/internal/service/websocket"
)

// shutdownGrace is added on top of the worst-case wait for an in-flight
// tick and the final report dispatch.
const shutdownGrace = 5 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	hub        *websocket.HubService
	controller *session.Controller
	server     *http.Server
	teardown   []func(ctx context.Context)

	shutdownTimeout time.Duration
}

func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	sessionRepo := sqlite.NewSessionRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)
	reportRepo := sqlite.NewReportRepository(db)

	hub := websocket.NewHubService(log)

	position := location.NewDevicePosition()
	if lat, lng, ok := cfg.DevicePosition(); ok {
		position.Set(lat, lng)
	}
	resolver := location.NewResolver(position, cfg.GeocodingURL, cfg.GeocodingAPIKey, cfg.RequestTimeout(), log)

	detector := detection.NewClient(cfg.APIURL, cfg.RequestTimeout(), log)
	exporter := storage.NewExporter(cfg.ExportDirectory, log)

	// A tick makes at most a detection call and a geocoding call.
	tickTimeout := 2 * cfg.RequestTimeout()

	controller := session.NewController(session.Options{
		Interval:    cfg.CaptureEvery(),
		TickTimeout: tickTimeout,
		Source:      camera.NewSource(cfg, log),
		Encoder:     camera.NewEncoder(cfg.FrameWidth, cfg.FrameHeight, cfg.JPEGQuality),
		Detector:    detector,
		Resolver:    resolver,
		Compiler:    report.NewCompiler(log),
		Dispatcher:  dispatch.NewDispatcher(cfg.APIURL, cfg.ReportRecipient, cfg.ReportSubject, cfg.RequestTimeout(), exporter, log),
		Log:         storage.NewDetectionLog(log, detectionRepo),
		Sessions:    sessionRepo,
		Reports:     reportRepo,
		Broadcaster: hub,
		Logger:      log,
	})

	router := route.SetupRoutes(cfg, log, route.Dependencies{
		Controller:    controller,
		Resolver:      resolver,
		Position:      position,
		Hub:           hub,
		Exporter:      exporter,
		DetectionRepo: detectionRepo,
		ReportRepo:    reportRepo,
	})

	a := &App{
		config:     cfg,
		logger:     log,
		db:         db,
		hub:        hub,
		controller: controller,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},

		shutdownTimeout: tickTimeout + cfg.RequestTimeout() + shutdownGrace,
	}

	// Teardown runs in registration order: release the camera (reporting
	// any findings) before the archive goes away.
	a.onTeardown(func(ctx context.Context) {
		if err := controller.Stop(ctx); err != nil {
			log.Error("Session stop during shutdown: %v", err)
		}
	})
	a.onTeardown(func(ctx context.Context) {
		if err := db.Close(); err != nil {
			log.Error("Error closing archive: %v", err)
		}
	})

	return a, nil
}

func (a *App) onTeardown(fn func(ctx context.Context)) {
	a.teardown = append(a.teardown, fn)
}

// Run serves the operator surface until SIGINT or SIGTERM, then stops the
// HTTP server and runs the teardown hooks.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.hub.Run(ctx)

	a.logger.Info("🚀 Pothole Watch")
	a.logger.Info("📍 URL: http://localhost:%d", a.config.Port)
	a.logger.Info("🛰️ Detection API: %s", a.config.APIURL)
	a.logger.Info("📷 Camera: %s every %v", a.config.CameraDevice, a.config.CaptureEvery())
	a.logger.Info("📁 Reports: %s", a.config.ExportDirectory)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.ListenAndServe()
	}()

	var err error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if shutdownErr := a.server.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Error("HTTP server shutdown: %v", shutdownErr)
	}
	for _, fn := range a.teardown {
		fn(shutdownCtx)
	}

	a.logger.Info("Server stopped")
	return err
}
