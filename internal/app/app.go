package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"cardash/internal/config"
	apierrors "cardash/internal/errors"
	"cardash/internal/infrastructure"
	customMiddleware "cardash/internal/middleware"
	"cardash/internal/renderer"
	"cardash/internal/services"
	handlers "cardash/internal/transport/http"
	"cardash/internal/validation"
	ws "cardash/internal/websocket"
)

var (
	// Version is set at compile time
	Version = config.AppVersion
	// BuildTime is set at compile time
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(Version))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.DashboardMetrics
	Services      *ServiceContainer
	ErrorHandler  *apierrors.ErrorHandler
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Dataset   *services.DatasetCache
	Dashboard *services.DashboardService
	Health    *services.HealthService
	WebSocket *ws.Hub
	Pages     *renderer.Renderer
}

// NewApplication loads the configuration and wires the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires the application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", Version),
		slog.String("build_id", BuildID))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateDashboardMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Telemetry.Environment == "development"),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	datasetPath := a.Config.ResolveDatasetPath()
	if err := validation.NewFileValidator(a.Logger).ValidateDataset(datasetPath); err != nil {
		// not fatal: the views answer 503 until a usable export appears
		a.Logger.Warn("Dataset not usable",
			slog.String("path", datasetPath),
			slog.String("error", err.Error()),
			slog.Any("candidates", config.DatasetCandidates(a.Config.Dataset.Path)))
	}

	cache := services.NewDatasetCache(datasetPath, nil, a.Metrics, a.Logger)
	dashboard := services.NewDashboardService(cache, a.Config.Dataset, a.Metrics, a.Logger)

	hub := ws.NewHub(dashboard, a.Config.WebSocket, a.Metrics, a.Logger)

	health := services.NewHealthServiceWithBuildInfo(Version, BuildTime, BuildID, cache, hub, a.Logger)

	pages, err := renderer.New(a.Config.Dataset.Currency)
	if err != nil {
		return fmt.Errorf("failed to initialize page renderer: %w", err)
	}

	a.Services = &ServiceContainer{
		Dataset:   cache,
		Dashboard: dashboard,
		Health:    health,
		WebSocket: hub,
		Pages:     pages,
	}

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Only middleware that leaves the ResponseWriter hijackable runs
	// in front of the WebSocket route
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	wsHandler := handlers.NewWebSocketHandler(
		a.Services.WebSocket,
		a.Config.WebSocket,
		a.Config.Security.AllowedOrigins,
		a.isDevelopmentMode(),
		a.Logger,
	)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Handle("/ws", wsHandler)

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.MetricsMiddleware(a.Metrics))
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))

		secure := customMiddleware.DefaultSecureHeaders()
		secure.DevMode = a.isDevelopmentMode()
		r.Use(secure.Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		a.setupAPIRoutes(r)
		a.setupHTMLRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	requests := customMiddleware.NewValidationMiddleware(a.Logger)
	topBrands := a.Config.Dataset.TopBrands

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		viewsHandler := handlers.NewViewsHandler(a.Services.Dashboard, topBrands, requests, a.ErrorHandler, a.Logger)
		r.Mount("/views", viewsHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.ExportAudit(a.Logger))
			exportHandler := handlers.NewExportHandler(a.Services.Dashboard, topBrands, a.Metrics, a.ErrorHandler, a.Logger)
			r.Mount("/export", exportHandler.Routes())
		})
	})
}

// setupHTMLRoutes configures the server-rendered pages
func (a *Application) setupHTMLRoutes(r chi.Router) {
	requests := customMiddleware.NewValidationMiddleware(a.Logger)
	htmlHandler := handlers.NewHTMLHandler(a.Services.Dashboard, a.Services.Pages, requests, a.ErrorHandler, a.Logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SetHeader("Cache-Control", "no-cache"))
		r.Get("/", htmlHandler.Index)
		r.Get("/views/{view}", htmlHandler.View)
	})
}

// getCORSConfig returns CORS configuration based on environment
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		MaxAge:         300,
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		Logger:         a.Logger,
	}

	if a.isDevelopmentMode() {
		cfg.AllowedOrigins = append([]string{
			fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
			fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
		}, cfg.AllowedOrigins...)
	}

	a.Logger.Info("CORS configured",
		slog.Bool("development", a.isDevelopmentMode()),
		slog.Any("allowed_origins", cfg.AllowedOrigins))

	return cfg
}

// isDevelopmentMode reports whether the telemetry environment is development
func (a *Application) isDevelopmentMode() bool {
	return a.Config.Telemetry.Environment == "development"
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

// Start starts the WebSocket hub and the HTTP server. A listener failure
// cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("dataset", a.Services.Dataset.Path()),
		slog.String("level", a.Config.Logging.Level))

	a.Services.WebSocket.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	// Warm the cache so the first page view does not pay for the load
	go a.warmDataset(ctx)

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

func (a *Application) warmDataset(ctx context.Context) {
	ds, err := a.Services.Dataset.Get(ctx)
	if err != nil {
		a.Logger.WarnContext(ctx, "Startup dataset load failed", slog.String("error", err.Error()))
		return
	}
	info := ds.Info()
	a.Logger.InfoContext(ctx, "Dataset ready",
		slog.Int("records", info.Records),
		slog.String("source", info.Source))
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Services.WebSocket.BroadcastStatus("shutting_down", "server is shutting down")

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// hijacked connections are not tracked by Shutdown
	a.Services.WebSocket.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing log file", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
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
		a.Logger.ErrorContext(ctx, "Server stopped unexpectedly")
	}

	// the run context may already be cancelled
	return a.Stop(context.WithoutCancel(ctx))
}
