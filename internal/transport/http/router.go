package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dErrors "vcregistry/pkg/domain-errors"
	"vcregistry/pkg/platform/httputil"
	request "vcregistry/pkg/platform/middleware/request"
	"vcregistry/pkg/platform/middleware/requesttime"
)

// Registrar mounts a feature's routes.
type Registrar interface {
	Register(r chi.Router)
}

// Config carries the transport settings NewRouter applies to every route.
type Config struct {
	TrustedProxies []netip.Prefix
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	Metrics        *request.Metrics
	Gatherer       prometheus.Gatherer
}

// NewRouter wires all public endpoints with middleware. Handlers stay thin
// and delegate to services so transport concerns remain isolated.
func NewRouter(cfg Config, logger *slog.Logger, registrars ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.ClientMetadata(cfg.TrustedProxies))
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(cfg.Metrics))
	if cfg.RequestTimeout > 0 {
		r.Use(request.Timeout(cfg.RequestTimeout))
	}
	r.Use(request.BodyLimit(cfg.MaxBodyBytes))

	for _, reg := range registrars {
		reg.Register(r)
	}

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteTagged(w, http.StatusMethodNotAllowed, httputil.TagMethodNotAllowed)
	})

	return r
}
