package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"priceeda/internal/charts"
	"priceeda/internal/config"
	apierrors "priceeda/internal/errors"
	"priceeda/internal/infrastructure"
	customMiddleware "priceeda/internal/middleware"
	"priceeda/internal/services"
	"priceeda/internal/store"
	handlers "priceeda/internal/transport/http"
)

// BuildTime is set at link time with -ldflags "-X priceeda/internal/app.BuildTime=..."
var BuildTime = ""

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Journal       *store.SQLiteStore
	Services      *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Analysis *services.AnalysisService
	Health   *services.HealthService
}

// NewApplication wires configuration, telemetry, services, router and
// server. The configured dataset is loaded when it exists; a missing or
// unreadable dataset is logged and leaves the API not ready.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := cfg.ResolvedPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	if err := app.initializeServices(context.Background()); err != nil {
		app.closeResources(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	if a.Paths.JournalFile != "" {
		journal, err := store.NewSQLiteStore(ctx, a.Paths.JournalFile, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to open impact journal: %w", err)
		}
		a.Journal = journal
	}

	format, err := charts.ParseFormat(a.Config.Charts.Format)
	if err != nil {
		return err
	}
	renderer := charts.NewRenderer(charts.Options{
		Width:  a.Config.Charts.Width,
		Height: a.Config.Charts.Height,
		Format: format,
	}, a.Logger)

	deps := services.Dependencies{
		Config:   a.Config.Analysis,
		Paths:    a.Paths,
		Renderer: renderer,
		Metrics:  a.Metrics,
		Tracer:   a.OTelProviders.Tracer,
		Logger:   a.Logger,
	}
	// a nil *SQLiteStore must not become a non-nil interface
	var journal store.ImpactStore
	if a.Journal != nil {
		journal = a.Journal
		deps.Journal = journal
	}
	analysisService := services.NewAnalysisService(deps)

	if dataset := a.Paths.DatasetFile; dataset != "" {
		if !config.FileExists(dataset) {
			a.Logger.Warn("Dataset file not found",
				slog.String("path", dataset),
				slog.String("action", "load one with POST /api/v1/dataset/load"))
		} else if _, err := analysisService.LoadDataset(ctx, dataset); err != nil {
			a.Logger.Warn("Failed to load dataset",
				slog.String("path", dataset),
				slog.String("error", err.Error()))
		}
	}

	a.Services = &ServiceContainer{
		Analysis: analysisService,
		Health:   services.NewHealthService(config.AppVersion, BuildTime, analysisService, journal, a.Logger),
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Telemetry.Environment == "development")

	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(errorHandler))
	if a.Config.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.RateLimit.RPS,
			a.Config.RateLimit.Burst,
			a.Logger,
			errorHandler,
		).Handler)
	}
	r.Use(customMiddleware.SecurityHeaders)

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	r.Get("/healthz", healthHandler.HealthCheck)
	r.Get("/healthz/ready", healthHandler.ReadinessCheck)
	r.Get("/healthz/live", healthHandler.LivenessCheck)
	r.Get("/version", healthHandler.Version)
	r.Method(http.MethodGet, "/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP))

	a.setupAPIRoutes(r, errorHandler)
	a.Router = r
}

// setupAPIRoutes mounts the analysis API
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	svc := a.Services.Analysis

	r.Route("/api/v1", func(r chi.Router) {
		if a.Config.Server.RequestTimeout > 0 {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		}

		handlers.NewAnalysisHandler(svc, a.Logger, errorHandler).RegisterRoutes(r)
		r.Mount("/events", handlers.NewImpactHandler(svc, a.Logger, errorHandler).Routes())
		r.Mount("/charts", handlers.NewChartHandler(svc, a.Logger, errorHandler).Routes())
		r.Mount("/exports", handlers.NewExportHandler(svc, a.Logger, errorHandler).Routes())
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the HTTP server in the background. A listen failure cancels
// ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
		slog.Bool("dataset_loaded", a.Services.Analysis.Loaded()))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.closeResources(shutdownCtx)

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

func (a *Application) closeResources(ctx context.Context) {
	if a.Journal != nil {
		if err := a.Journal.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing impact journal", slog.String("error", err.Error()))
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}
