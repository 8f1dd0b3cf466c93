package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"taskflow/internal/platform/metrics"
	authmw "taskflow/pkg/platform/middleware/auth"
	"taskflow/pkg/platform/middleware/request"
	"taskflow/pkg/platform/middleware/requesttime"
)

// RouteRegistrar mounts a module's routes on a router.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// PublicRouteRegistrar mounts routes that are reachable without a credential.
type PublicRouteRegistrar interface {
	RegisterPublic(r chi.Router)
}

// Config carries everything the router mounts.
type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Authenticator  authmw.Authenticator
	RequestTimeout time.Duration
	Health         *Health
	Public         []PublicRouteRegistrar
	Protected      []RouteRegistrar
}

// NewRouter builds the chi router: shared middleware on every route, the
// public and protected module routes under /api, and the operational
// endpoints at the root.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(cfg.Logger))
	r.Use(requesttime.Middleware)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.LatencyMiddleware)
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}
	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.ServeHTTP)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.RequestTimeout > 0 {
			api.Use(chimiddleware.Timeout(cfg.RequestTimeout))
		}
		for _, m := range cfg.Public {
			m.RegisterPublic(api)
		}
		api.Group(func(protected chi.Router) {
			protected.Use(authmw.RequireAuth(cfg.Authenticator, cfg.Logger))
			for _, m := range cfg.Protected {
				m.Register(protected)
			}
		})
	})
	return r
}
