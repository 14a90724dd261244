package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vctodwn/internal/platform/middleware"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HTTPMetrics observes requests and serves the scrape endpoint.
type HTTPMetrics interface {
	middleware.HTTPObserver
	Handler() http.Handler
}

// Config wires the router.
type Config struct {
	Logger         *slog.Logger
	Metrics        HTTPMetrics
	Health         RouteRegistrar
	RequestTimeout time.Duration
	// Handlers are mounted behind the request timeout.
	Handlers []RouteRegistrar
}

// NewRouter wires all public endpoints with middleware.
// Probes and /metrics skip the request timeout so they answer while API
// requests are stuck on a slow DWN.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}
	if cfg.Health != nil {
		cfg.Health.Register(r)
	}

	r.Group(func(api chi.Router) {
		if cfg.RequestTimeout > 0 {
			api.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		for _, h := range cfg.Handlers {
			h.Register(api)
		}
	})

	return r
}
