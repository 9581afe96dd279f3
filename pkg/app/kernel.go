package app

import (
	"context"
	"net/http"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/app/routes"
	"github.com/shashiranjanraj/kashvi-shop/pkg/database"
	"github.com/shashiranjanraj/kashvi-shop/pkg/metrics"
	"github.com/shashiranjanraj/kashvi-shop/pkg/middleware"
	"github.com/shashiranjanraj/kashvi-shop/pkg/reqid"
	"github.com/shashiranjanraj/kashvi-shop/pkg/response"
	"github.com/shashiranjanraj/kashvi-shop/pkg/router"
)

// HealthCheck reports whether the process can serve traffic.
type HealthCheck func(ctx context.Context) error

// NewRouter mounts the global middleware, the operational endpoints and the
// API. The request ID is assigned before Recovery and Logger so both can tag
// their lines with it.
func NewRouter(d routes.Deps, check HealthCheck) *router.Router {
	r := router.New()
	r.Use(metrics.Middleware())
	r.Use(reqid.Middleware())
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.CORSFromConfig()))
	r.Use(middleware.RateLimit(200, time.Minute))

	r.Get("/metrics", "metrics", metrics.Handler())
	r.Get("/healthz", "healthz", healthz(check))

	routes.RegisterAPI(r, d)
	return r
}

func healthz(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if check != nil {
			if err := check(ctx); err != nil {
				response.Fail(w, http.StatusServiceUnavailable, "unhealthy", err.Error(), nil)
				return
			}
		}
		response.Success(w, map[string]string{"status": "ok"})
	}
}

// Ping is the health check for a booted App.
func (a *App) Ping(ctx context.Context) error { return database.Ping(ctx, a.DB) }

// Handler is the full HTTP handler for a booted App.
func (a *App) Handler() http.Handler {
	return NewRouter(a.Deps(), a.Ping).Handler()
}
