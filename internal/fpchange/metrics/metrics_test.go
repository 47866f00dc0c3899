package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncUpload(OutcomeAccepted)
		m.AddRows(RowValid, 3)
		m.IncError("http.timeout")
		m.ObserveDispatch("ACCAI", "ok", time.Millisecond)
		m.AddContractsUpdated("ACCAI", 1)
		m.ObserveHandle(time.Millisecond)
	})
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncUpload(OutcomeRejected)
	m.AddRows(RowInvalid, 2)
	m.AddRows(RowSkipped, 0)
	m.AddContractsUpdated("ACCAI", 3)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Uploads.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Rows.WithLabelValues(RowInvalid)))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.ContractsUpdated.WithLabelValues("ACCAI")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Rows))
}
