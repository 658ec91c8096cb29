package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensiml/piccolo-sub000/internal/ir"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.ObserveStep("Magnitude", 1)
	m.ObserveStep("Histogram", 8)
	m.ObserveStep("Histogram", 8)
	m.ObserveViolation(ir.KindRangeViolation)
	m.ObserveCompile(false, 2*time.Millisecond)
	m.ObserveCompile(true, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.steps.WithLabelValues("Histogram")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.steps.WithLabelValues("Magnitude")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.violations.WithLabelValues("RangeViolation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compiles.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compiles.WithLabelValues("invalid")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveViolation(ir.KindUnknownColumn)

	expected := `
# HELP piccolo_violations_total Violations reported, by kind.
# TYPE piccolo_violations_total counter
piccolo_violations_total{kind="UnknownColumn"} 1
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "piccolo_violations_total")
	assert.NoError(t, err)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveStep("Magnitude", 1)
		m.ObserveViolation(ir.KindRangeViolation)
		m.ObserveCompile(true, time.Millisecond)
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteToTextfile(filepath.Join(t.TempDir(), "none.prom")))
}

func TestMetricsWriteToTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveCompile(true, time.Millisecond)

	path := filepath.Join(t.TempDir(), "piccolo.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `piccolo_compiles_total{result="valid"} 1`)
	assert.Contains(t, string(data), "piccolo_compile_duration_seconds_count 1")
}
