package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"retailpulse/internal/config"
	"retailpulse/internal/dataprocessing"
	"retailpulse/internal/extractor"
	"retailpulse/internal/infrastructure"
	"retailpulse/internal/operations"
	"retailpulse/internal/storage"
	handlers "retailpulse/internal/transport/http"
	"retailpulse/pkg/contracts"
)

// AppName is the display name used in startup logs
const AppName = "RetailPulse"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Store         storage.TableStore
	Router        chi.Router
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.PipelineMetrics
}

// NewApplication creates a new application instance with dependency injection
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("storage_backend", cfg.Storage.Backend))

	paths, err := cfg.Paths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewPipelineMetrics(otelProviders.Meter)
	if err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize pipeline metrics: %w", err)
	}

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Store:         store,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// setupRouter builds the gold API router
func (a *Application) setupRouter() {
	a.Router = handlers.NewRouter(handlers.RouterDeps{
		Reader:         a.Store,
		RateLimit:      a.Config.Server.RateLimit,
		Tracer:         a.OTelProviders.Tracer,
		Metrics:        a.Metrics,
		PrometheusHTTP: a.OTelProviders.PrometheusHTTP,
		Logger:         a.Logger,
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// NewPipeline builds a pipeline manager over the application store.
// Extractor options are passed through, e.g. a custom HTTP client.
func (a *Application) NewPipeline(opts ...extractor.Option) *operations.Manager {
	deps := operations.Dependencies{
		Extractor: extractor.New(a.Config.Source, a.Logger, opts...),
		Cleaner:   dataprocessing.NewCleaner(dataprocessing.CleanerConfigFrom(a.Config.Cleaning), a.Logger),
		Engine: dataprocessing.NewEngine(
			dataprocessing.EngineConfigFrom(a.Config.Aggregation),
			a.Logger,
			dataprocessing.DefaultAggregators(a.Config.Aggregation.TopProducts)...,
		),
		Store:   a.Store,
		Tracer:  a.OTelProviders.Tracer,
		Metrics: a.Metrics,
		Logger:  a.Logger,
	}
	if a.Config.Storage.Workbook {
		deps.Exporter = storage.NewWorkbookExporter(a.Paths, a.Logger)
	}
	return operations.NewManager(deps)
}

// RunPipeline executes one pipeline run
func (a *Application) RunPipeline(ctx context.Context, opts ...extractor.Option) (*operations.RunResponse, error) {
	return a.NewPipeline(opts...).Execute(ctx)
}

// Start starts the HTTP server in the background. cancel is called when the
// server stops with an error.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("data_dir", a.Paths.DataDir),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully shuts down the server and releases resources
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.shutdownTimeout())
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	return a.Close(shutdownCtx)
}

// Close releases the store and flushes telemetry. It is the shutdown path
// for batch runs that never start the server.
func (a *Application) Close(ctx context.Context) error {
	var errs []error

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing store", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run starts the server and blocks until SIGINT or SIGTERM
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

func (a *Application) shutdownTimeout() time.Duration {
	if a.Config.Server.ShutdownTimeout > 0 {
		return a.Config.Server.ShutdownTimeout
	}
	return 30 * time.Second
}
