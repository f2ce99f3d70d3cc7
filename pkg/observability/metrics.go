package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instrumentation for a knngraph index. Unlike
// a server process, a library has no single global metric namespace to
// register into safely -- an application may construct many indexes (tests
// routinely do), and the default global registerer panics on a duplicate
// collector name. Metrics therefore owns a private *prometheus.Registry
// and registers into that; embedding applications that want these series
// exposed on their own /metrics endpoint can call Registry().Gather, or
// combine Registry() with their own registry as a prometheus.Gatherers
// list, or build the Metrics on their own registry with
// NewMetricsWithRegistry.
type Metrics struct {
	registry *prometheus.Registry

	// Compile lifecycle
	CompilesTotal    prometheus.Counter
	CompileErrors    *prometheus.CounterVec
	CompileDuration  prometheus.Histogram
	CompileEpochs    prometheus.Histogram

	// Refinement loop
	EpochsTotal        prometheus.Counter
	EpochImprovements  prometheus.Histogram
	EpochImprovementRatio prometheus.Histogram
	DistanceCallsTotal prometheus.Counter

	// Index state
	ItemsTotal  prometheus.Gauge
	CompiledSize prometheus.Gauge

	// Error-ratio evaluator
	ErrorRatioObserved prometheus.Histogram
	ErrorRatioCalls    prometheus.Counter
}

// NewMetrics creates a Metrics bound to a fresh private registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.NewRegistry())
}

// NewMetricsWithRegistry creates a Metrics registered into reg, so an
// embedding application can merge these series into its own registry.
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CompilesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "knngraph_compiles_total",
			Help: "Total number of Compile calls that completed successfully",
		}),
		CompileErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "knngraph_compile_errors_total",
			Help: "Total number of Compile calls that failed, by error kind",
		}, []string{"kind"}),
		CompileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "knngraph_compile_duration_seconds",
			Help:    "Wall time of a single Compile call",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30, 60},
		}),
		CompileEpochs: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "knngraph_compile_epochs",
			Help:    "Number of refinement epochs run before convergence",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
		}),

		EpochsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "knngraph_epochs_total",
			Help: "Total number of refinement epochs executed across all compiles",
		}),
		EpochImprovements: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "knngraph_epoch_improvements",
			Help:    "Improvement count c observed per epoch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		EpochImprovementRatio: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "knngraph_epoch_improvement_ratio",
			Help:    "Per-epoch improvement ratio c/N",
			Buckets: []float64{.01, .02, .05, .1, .2, .3, .5, .75, 1.0},
		}),
		DistanceCallsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "knngraph_distance_calls_total",
			Help: "Total number of distance function invocations (seeding + refinement)",
		}),

		ItemsTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "knngraph_items_total",
			Help: "Current number of items in the item store",
		}),
		CompiledSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "knngraph_compiled_labels",
			Help: "Number of labels present in the most recently compiled index",
		}),

		ErrorRatioObserved: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "knngraph_error_ratio",
			Help:    "Error ratio returned by ErrorRatio calls",
			Buckets: []float64{1.0, 1.1, 1.25, 1.5, 1.75, 2.0, 2.5, 3.0, 5.0},
		}),
		ErrorRatioCalls: f.NewCounter(prometheus.CounterOpts{
			Name: "knngraph_error_ratio_calls_total",
			Help: "Total number of ErrorRatio calls",
		}),
	}
}

// Registry returns the private registry these metrics are registered into.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
