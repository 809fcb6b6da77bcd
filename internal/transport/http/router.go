// Package httptransport wires the registration flow onto the HTTP surface.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"enroll/internal/platform/middleware"
	"enroll/internal/platform/redis"
)

// RouterConfig carries the handlers and cross-cutting dependencies the
// router mounts.
type RouterConfig struct {
	Register *RegisterHandler
	Logger   *slog.Logger
	// Redis is optional; when present its health is reported by /healthz.
	Redis *redis.Client
}

// NewRouter assembles the HTTP surface: health, metrics and the registration
// endpoints behind the standard middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(cfg.Redis))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	cfg.Register.Register(r)

	return r
}

func healthHandler(rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rdb != nil {
			if err := rdb.Health(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"redis":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
