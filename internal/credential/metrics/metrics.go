package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the credential lifecycle.
type Metrics struct {
	CredentialsIssued  prometheus.Counter
	CredentialsRevoked *prometheus.CounterVec
	Verifications      *prometheus.CounterVec
	IssueRejected      *prometheus.CounterVec
	AuditFailures      *prometheus.CounterVec
	AuditDropped       *prometheus.CounterVec
	AuditCircuitOpen   prometheus.Gauge
}

// New registers the collectors on the default registry.
// NewWith registers the collectors on reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CredentialsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "vcregistry_credentials_issued_total",
			Help: "Total number of credentials issued",
		}),
		CredentialsRevoked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vcregistry_credentials_revoked_total",
			Help: "Total number of revocation requests, labeled by outcome (revoked, already_revoked, not_found)",
		}, []string{"outcome"}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vcregistry_verifications_total",
			Help: "Total number of verifications, labeled by derived status and client class",
		}, []string{"status", "client"}),
		IssueRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vcregistry_issue_rejected_total",
			Help: "Total number of rejected issuance requests, labeled by reason",
		}, []string{"reason"}),
		AuditFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vcregistry_audit_failures_total",
			Help: "Total number of audit entries a sink failed to write, labeled by sink",
		}, []string{"sink"}),
		AuditDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vcregistry_audit_dropped_total",
			Help: "Total number of audit entries dropped without a write attempt, labeled by reason",
		}, []string{"reason"}),
		AuditCircuitOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "vcregistry_audit_stream_circuit_open",
			Help: "1 when the audit stream circuit breaker is open",
		}),
	}
}

func (m *Metrics) IncrementIssued() {
	m.CredentialsIssued.Inc()
}

func (m *Metrics) IncrementRevoked(outcome string) {
	m.CredentialsRevoked.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementVerification(status, userAgent string) {
	m.Verifications.WithLabelValues(status, ClientClass(userAgent)).Inc()
}

func (m *Metrics) IncrementIssueRejected(reason string) {
	m.IssueRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementAuditFailure(sink string) {
	m.AuditFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) IncrementAuditDropped(reason string) {
	m.AuditDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetAuditCircuitOpen(open bool) {
	if open {
		m.AuditCircuitOpen.Set(1)
		return
	}
	m.AuditCircuitOpen.Set(0)
}
