// Package httptransport assembles the public HTTP router: middleware chain,
// feature handlers, health, and metrics.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credentialwatch/internal/platform/middleware"
	"credentialwatch/pkg/platform/httputil"
)

// Registrar is implemented by feature handlers that mount their own routes.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries everything the router needs. Logger is required; handlers may
// be a subset during tests.
type Deps struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	Handlers       []Registrar
}

// NewRouter builds the full middleware chain and mounts all handlers.
// Middleware order matters: recovery outermost, then request identity and
// time pinning, so even panics are logged with a request_id.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}

	r.Get("/healthz", handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		for _, h := range deps.Handlers {
			h.Register(r)
		}
	})

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
