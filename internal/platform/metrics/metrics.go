package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the audit pipeline.
type Metrics struct {
	AuditEmitted  prometheus.Counter
	AuditSkipped  *prometheus.CounterVec
	AuditFailures prometheus.Counter
}

// Skip reasons for the audit_events_skipped_total counter.
const (
	SkipNoToken  = "no_token"
	SkipM2M      = "m2m_token"
	SkipNoAction = "no_action"
	SkipIdentity = "identity_unresolved"
)

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a caller-supplied registry, which keeps
// tests free of duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuditEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "auditrelay_audit_events_emitted_total",
			Help: "Total number of audit events handed to a transport",
		}),
		AuditSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auditrelay_audit_events_skipped_total",
			Help: "Total number of completed requests for which no audit event was shipped",
		}, []string{"reason"}),
		AuditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "auditrelay_audit_delivery_failures_total",
			Help: "Total number of audit events that could not be assembled or delivered",
		}),
	}
}
