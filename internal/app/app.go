package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/xalekter/charts-edit/internal/config"
	apierrors "github.com/xalekter/charts-edit/internal/errors"
	"github.com/xalekter/charts-edit/internal/infrastructure"
	customMiddleware "github.com/xalekter/charts-edit/internal/middleware"
	"github.com/xalekter/charts-edit/internal/services"
	"github.com/xalekter/charts-edit/internal/session"
	handlers "github.com/xalekter/charts-edit/internal/transport/http"
	ws "github.com/xalekter/charts-edit/internal/websocket"
	"github.com/xalekter/charts-edit/pkg/contracts"
)

// compressionLevel is the gzip level for JSON and text responses.
const compressionLevel = 5

// Application represents the main application container
type Application struct {
	Config         *config.Config
	Router         *chi.Mux
	Server         *http.Server
	Sessions       *session.Manager
	WebSocketHub   *ws.Hub
	DatasetService *services.DatasetService
	HealthService  *services.HealthService
	Metrics        *infrastructure.BusinessMetrics
	OTelProviders  *infrastructure.OTelProviders
	ErrorHandler   *apierrors.ErrorHandler
	Logger         *slog.Logger
}

// NewApplication wires every component from cfg. Nothing runs until Run.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("addr", cfg.Server.Addr()))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}
	app.initializeServices()
	if err := app.setupRouter(); err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, err
	}
	app.createServer()
	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() {
	a.Sessions = session.NewManager(session.ManagerConfig{
		IdleTimeout:   a.Config.Session.IdleTimeout,
		SweepInterval: a.Config.Session.SweepInterval,
		MaxSessions:   a.Config.Session.MaxSessions,
	}, a.Logger)

	a.WebSocketHub = ws.NewHub(a.Metrics, a.Logger)
	a.DatasetService = services.NewDatasetService(a.Sessions, a.WebSocketHub, a.Metrics, a.Config.Editor, a.Logger)
	a.HealthService = services.NewHealthService(
		contracts.Version,
		a.Sessions,
		services.CounterFunc(a.WebSocketHub.ClientCount),
		a.Config.Session.MaxSessions,
		a.Logger,
	)
}

func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	// Only middleware that leaves the ResponseWriter unwrapped runs in
	// front of the websocket upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	wsHandler := handlers.NewWebSocketHandler(
		a.WebSocketHub,
		a.Sessions,
		a.Config.WebSocket,
		a.Config.Security.AllowedOrigins,
		a.Logger,
		a.ErrorHandler,
	)
	r.With(
		customMiddleware.WebSocketTraceMiddleware(a.Logger),
		customMiddleware.StructuredLogger(a.Logger),
	).Handle(config.WebSocketEndpoint, wsHandler)

	r.With(customMiddleware.StructuredLogger(a.Logger)).
		Mount(config.MetricsEndpoint, handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP).Routes())

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}

	// RequestID → RealIP → Recoverer → OTel → Logger → Security → CORS → RateLimit
	r.Group(func(r chi.Router) {
		r.Use(otelMiddleware.Handler)
		r.Use(apierrors.NewErrorMiddleware(a.ErrorHandler, a.Logger).Handler)
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.corsConfig()))
		}
		if rl := a.Config.Security.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.ErrorHandler, a.Logger).Handler)
		}
		r.Use(customMiddleware.Compress(compressionLevel))

		a.setupAPIRoutes(r)
	})

	a.Router = r
	return nil
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route(config.APIBasePath, func(r chi.Router) {
		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		datasetHandler := handlers.NewDatasetHandler(
			a.DatasetService,
			customMiddleware.NewValidator(a.Logger),
			a.Config.Server.UploadMaxBytes,
			a.Logger,
			a.ErrorHandler,
		)
		r.Mount("/sessions", datasetHandler.Routes())
	})
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves until ctx is cancelled, then shuts everything down. The HTTP
// server, the change feed hub and the session sweeper share one errgroup, so
// a failure in any of them stops the others.
func (a *Application) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.WebSocketHub.Run(ctx) })
	g.Go(func() error { return a.Sessions.Run(ctx) })
	g.Go(func() error {
		a.Logger.InfoContext(ctx, "http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return a.Stop(context.Background())
	})

	err := g.Wait()
	if err != nil {
		infrastructure.WithError(a.Logger, err).Error("application stopped with error")
	}
	return err
}

// Stop gracefully stops the HTTP server and flushes telemetry.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.shutdownTimeout())
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return errors.Join(errs...)
}

func (a *Application) shutdownTimeout() time.Duration {
	if a.Config.Server.ShutdownTimeout > 0 {
		return a.Config.Server.ShutdownTimeout
	}
	return config.DefaultShutdownTimeout
}
