package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tabletop"

// APIMetrics holds all Prometheus metrics for the API and the audit relay.
type APIMetrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	TenantCacheHits     prometheus.Counter
	TenantCacheMisses   prometheus.Counter
	LoginAttemptsTotal  *prometheus.CounterVec
	ProvisionTotal      *prometheus.CounterVec
	AuditEventsTotal    *prometheus.CounterVec
	AuditRelayedTotal   *prometheus.CounterVec
	WALActive           prometheus.Gauge
}

// NewAPIMetrics creates the metrics and registers them with reg. A nil reg
// leaves them unregistered, which is what tests want.
func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	factory := promauto.With(reg)
	return &APIMetrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		TenantCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenant",
			Name:      "cache_hits_total",
			Help:      "Total number of tenant resolver cache hits.",
		}),
		TenantCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenant",
			Name:      "cache_misses_total",
			Help:      "Total number of tenant resolver cache misses.",
		}),
		LoginAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by phase and outcome.",
		}, []string{"phase", "outcome"}), // phase: check, complete; outcome: ok, rejected, error
		ProvisionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenant",
			Name:      "provisioned_total",
			Help:      "Tenant provisioning attempts by outcome.",
		}, []string{"outcome"}), // outcome: ok, partial, error
		AuditEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "events_total",
			Help:      "Audit events recorded by status.",
		}, []string{"status"}), // status: buffered, error
		AuditRelayedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "relayed_total",
			Help:      "Audit events handled by the relay by status.",
		}, []string{"status"}), // status: delivered, dlq
		WALActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "wal_active_gauge",
			Help:      "Indicates if the Write-Ahead Log is currently active (1 for active, 0 for inactive).",
		}),
	}
}
