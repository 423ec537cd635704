package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("hradmin", reg)
	require.NotNil(t, m)

	m.ActiveBatches.Inc()
	m.RecordRow("batch", "succeeded", "")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["hradmin_payouts_total"])
	assert.True(t, names["hradmin_batch_rows_total"])
	assert.True(t, names["hradmin_active_batches"])
}

func TestRecordRow(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordRow("batch", "succeeded", "")
	m.RecordRow("batch", "failed", "employee_not_found")
	m.RecordRow("batch", "failed", "employee_not_found")
	m.RecordRow("manual", "failed", "send_failed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PayoutsTotal.WithLabelValues("batch", "succeeded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PayoutsTotal.WithLabelValues("batch", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PayoutsTotal.WithLabelValues("manual", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRowsTotal.WithLabelValues("succeeded", "none")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchRowsTotal.WithLabelValues("failed", "employee_not_found")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.BatchRowsTotal))
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics("dup", reg)

	assert.Panics(t, func() {
		NewMetrics("dup", reg)
	})
}
