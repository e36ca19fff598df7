// Package httptransport assembles the HTTP surface: certificate routes,
// health and Prometheus metrics behind the shared middleware chain.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certnexus/internal/certificate/handler"
	"certnexus/internal/platform/middleware"
	"certnexus/pkg/platform/httputil"
)

// requestTimeout is sized for the slowest operation, a bulk generation run.
const requestTimeout = 5 * time.Minute

// NewRouter builds the root router.
func NewRouter(certificates *handler.Handler, logger *slog.Logger, checks map[string]func() error) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		httputil.WriteJSON(w, status, result)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		certificates.Register(r)
	})

	return r
}
