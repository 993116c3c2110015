package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/metrics"
)

func TestMetrics_RecordBulk(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	m.RecordBulk("server_instructions", 3, 1)
	m.RecordBulk("server_instructions", 2, 0)

	assert.InDelta(t, 5, testutil.ToFloat64(
		m.BulkOperationsTotal.WithLabelValues("server_instructions", metrics.ResultCommitted)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		m.BulkOperationsTotal.WithLabelValues("server_instructions", metrics.ResultFailed)), 0)
}

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	m.RecordWrite("scans", metrics.ModeUniqueness)
	m.RecordInstruction("RUN")
	m.RecordConflict("STOP")
	m.RecordVariantWrite(metrics.ModeMerge)

	assert.InDelta(t, 1, testutil.ToFloat64(m.WritesTotal.WithLabelValues("scans", metrics.ModeUniqueness)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.InstructionsCreatedTotal.WithLabelValues("RUN")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ConflictsTotal.WithLabelValues("STOP")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.VariantsWrittenTotal.WithLabelValues(metrics.ModeMerge)), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.RecordWrite("sites", metrics.ModeReplace)
		m.RecordBulk("sites", 1, 1)
		m.RecordInstruction("RUN")
		m.RecordConflict("RUN")
		m.RecordVariantWrite(metrics.ModeInsert)
	})
}
