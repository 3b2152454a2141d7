package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cashless/pkg/platform/httputil"
	"cashless/pkg/platform/middleware/auth"
	"cashless/pkg/platform/middleware/request"
	"cashless/pkg/platform/middleware/requesttime"
)

// ReadinessCheck reports an error while a dependency is not ready to serve.
type ReadinessCheck func(ctx context.Context) error

// RouterConfig carries what NewRouter mounts.
type RouterConfig struct {
	Handler       *Handler
	Authenticator auth.Authenticator
	Gatherer      prometheus.Gatherer
	Ready         map[string]ReadinessCheck
	Logger        *slog.Logger
}

// NewRouter mounts the health, metrics and authenticated API routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(cfg.Ready))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(cfg.Authenticator, cfg.Logger))
		cfg.Handler.RegisterPayments(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(cfg.Logger))
			cfg.Handler.RegisterAdmin(r)
		})
	})
	return r
}

func readiness(checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		httputil.WriteJSON(w, status, report)
	}
}
