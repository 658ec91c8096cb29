package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sensiml/piccolo-sub000/internal/compiler"
	"github.com/sensiml/piccolo-sub000/internal/ir"
)

var _ compiler.Recorder = (*Metrics)(nil)

const namespace = "piccolo"

// Metrics records compile activity. It implements compiler.Recorder.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	compiles   *prometheus.CounterVec
	duration   prometheus.Histogram
	steps      *prometheus.CounterVec
	width      prometheus.Histogram
	violations *prometheus.CounterVec
}

// NewMetrics registers the compile metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		compiles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compiles_total",
			Help:      "Pipelines compiled, by outcome.",
		}, []string{"result"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Wall time of one pipeline compile.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_compiled_total",
			Help:      "Steps that resolved to a shape, by contract.",
		}, []string{"contract"}),
		width: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_output_width",
			Help:      "Output width of compiled steps.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		violations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Violations reported, by kind.",
		}, []string{"kind"}),
	}
}

// ObserveStep records one compiled step and its output width.
func (m *Metrics) ObserveStep(contract string, width int) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(contract).Inc()
	m.width.Observe(float64(width))
}

// ObserveViolation counts one violation.
func (m *Metrics) ObserveViolation(kind ir.ErrorKind) {
	if m == nil {
		return
	}
	m.violations.WithLabelValues(string(kind)).Inc()
}

// ObserveCompile records the outcome and duration of one compile.
func (m *Metrics) ObserveCompile(valid bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.compiles.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry for gathering or HTTP export.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// WriteToTextfile writes the current values in the node_exporter textfile
// format. The file is replaced atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
