package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for Kafka audit publishing.
type Metrics struct {
	Published    prometheus.Counter
	Failed       prometheus.Counter
	Dropped      prometheus.Counter
	CircuitState prometheus.Gauge
}

// NewMetrics registers the audit publisher metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounter(prometheus.CounterOpts{
			Name: "accai_audit_kafka_published_total",
			Help: "Total number of audit events produced to Kafka",
		}),
		Failed: f.NewCounter(prometheus.CounterOpts{
			Name: "accai_audit_kafka_failed_total",
			Help: "Total number of audit events whose produce call failed",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "accai_audit_kafka_dropped_total",
			Help: "Total number of audit events dropped while the circuit was open",
		}),
		CircuitState: f.NewGauge(prometheus.GaugeOpts{
			Name: "accai_audit_kafka_circuit_state",
			Help: "Current circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}
