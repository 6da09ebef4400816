package request

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the HTTP metrics on reg. Tests pass a fresh
// registry so repeated construction does not panic on duplicate registration.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		EndpointLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vcregistry_http_request_duration_seconds",
			Help:    "Latency of HTTP endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) ObserveEndpointLatency(method, route string, status int, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(durationSeconds)
}
