package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upload outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeFileError = "file_error"
)

// Row outcomes.
const (
	RowValid   = "valid"
	RowInvalid = "invalid"
	RowSkipped = "skipped"
)

// Metrics provides observability for the upload pipeline.
type Metrics struct {
	// Uploads by outcome
	Uploads *prometheus.CounterVec

	// Rows by outcome
	Rows *prometheus.CounterVec

	// Report errors by code (validation errors use "validation")
	Errors *prometheus.CounterVec

	// Outbound change requests by product and result
	DispatchLatency *prometheus.HistogramVec

	// Contracts whose agent changed, by product
	ContractsUpdated *prometheus.CounterVec

	// Whole pipeline latency
	HandleLatency prometheus.Histogram
}

// New creates the pipeline metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Uploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "accai_fp_uploads_total",
			Help: "Total processed uploads by outcome",
		}, []string{"outcome"}),

		Rows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "accai_fp_rows_total",
			Help: "Total parsed data rows by outcome",
		}, []string{"outcome"}),

		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "accai_fp_report_errors_total",
			Help: "Total report errors by code",
		}, []string{"code"}),

		DispatchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "accai_fp_dispatch_duration_seconds",
			Help:    "Duration of change requests by product and result",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"product", "result"}),

		ContractsUpdated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "accai_fp_contracts_updated_total",
			Help: "Total contracts whose agent was reassigned, by product",
		}, []string{"product"}),

		HandleLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "accai_fp_handle_duration_seconds",
			Help:    "Duration of full upload processing",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// IncUpload records an upload outcome.
func (m *Metrics) IncUpload(outcome string) {
	if m != nil {
		m.Uploads.WithLabelValues(outcome).Inc()
	}
}

// AddRows records n rows with the given outcome.
func (m *Metrics) AddRows(outcome string, n int) {
	if m != nil && n > 0 {
		m.Rows.WithLabelValues(outcome).Add(float64(n))
	}
}

// IncError records one report error.
func (m *Metrics) IncError(code string) {
	if m != nil {
		m.Errors.WithLabelValues(code).Inc()
	}
}

// ObserveDispatch records one outbound change request.
func (m *Metrics) ObserveDispatch(product, result string, d time.Duration) {
	if m != nil {
		m.DispatchLatency.WithLabelValues(product, result).Observe(d.Seconds())
	}
}

// AddContractsUpdated records applied reassignments.
func (m *Metrics) AddContractsUpdated(product string, n int) {
	if m != nil && n > 0 {
		m.ContractsUpdated.WithLabelValues(product).Add(float64(n))
	}
}

// ObserveHandle records the total processing duration.
func (m *Metrics) ObserveHandle(d time.Duration) {
	if m != nil {
		m.HandleLatency.Observe(d.Seconds())
	}
}
