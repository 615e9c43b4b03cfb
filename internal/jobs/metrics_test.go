package jobmetrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("invoice:render").End(nil))
	boom := errors.New("boom")
	assert.Same(t, boom, m.Track("invoice:render").End(boom))
	m.AddProcessed("analytics:warmup", 3)
	m.AddProcessed("analytics:warmup", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("invoice:render", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("invoice:render", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("invoice:render")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.processed.WithLabelValues("analytics:warmup")))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP fatoora_jobs_failures_total Failed job executions.
# TYPE fatoora_jobs_failures_total counter
fatoora_jobs_failures_total{job="invoice:render"} 1
`), "fatoora_jobs_failures_total")
	require.NoError(t, err)
}

func TestNilMetricsTrack(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	assert.Same(t, boom, m.Track("x").End(boom))
	m.AddProcessed("x", 1)
}
