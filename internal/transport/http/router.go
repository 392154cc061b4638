package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/trace"

	"retailpulse/internal/config"
	apierrors "retailpulse/internal/errors"
	"retailpulse/internal/infrastructure"
	"retailpulse/internal/middleware"
)

// RouterDeps are the collaborators of the API router. Metrics, Tracer and
// PrometheusHTTP are optional.
type RouterDeps struct {
	Reader         GoldReader
	RateLimit      config.RateLimitConfig
	Tracer         trace.Tracer
	Metrics        *infrastructure.PipelineMetrics
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
	IncludeStack   bool
}

// NewRouter builds the API router.
// Middleware order: RequestID, RealIP, OTel, logger, recoverer, rate limiter.
func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errorHandler := apierrors.NewErrorHandler(logger, deps.IncludeStack)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	if deps.PrometheusHTTP != nil {
		r.Handle("/metrics", deps.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOTelMiddleware(deps.Tracer, deps.Metrics, logger).Handler)
		r.Use(middleware.StructuredLogger(logger))
		r.Use(errorHandler.Middleware)
		r.Use(middleware.SecurityHeaders)
		if deps.RateLimit.Enabled {
			r.Use(middleware.NewRateLimiter(deps.RateLimit.RPS, deps.RateLimit.Burst, logger).Handler)
		}

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			health := NewHealthHandler()
			r.Get("/health", health.HealthCheck)
			r.Get("/version", health.Version)

			r.Mount("/gold", NewGoldHandler(deps.Reader, logger, errorHandler).Routes())
		})
	})

	return r
}
