// Package metrics provides Prometheus instrumentation for the predictive
// maintenance dashboard: prediction counters and latencies, model output
// distributions, explanation stats and HTTP request counts, all exposed on
// the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the dashboard.
type Metrics struct {
	// Prediction metrics
	PredictionsTotal   prometheus.Counter   // Total prediction cycles completed
	PredictionFailures prometheus.Counter   // Total prediction cycles aborted with an error
	SchemaMismatches   prometheus.Counter   // Predictions aborted on a feature/schema mismatch
	PredictionLatency  prometheus.Histogram // End-to-end prediction latency in seconds
	FailureProbability prometheus.Histogram // Distribution of predicted failure probabilities
	RULEstimate        prometheus.Histogram // Distribution of RUL estimates in operating hours

	// Explanation metrics
	ExplanationsTotal   prometheus.Counter   // Total attributions computed
	ExplanationFailures prometheus.Counter   // Attributions that fell back to the textual notice
	ExplanationLatency  prometheus.Histogram // Attribution latency in seconds

	// System metrics
	HTTPRequestsTotal prometheus.CounterVec // HTTP requests by route and status class
	ArtifactLoadTime  prometheus.Gauge      // Startup artifact load duration in seconds
	ArtifactsLoaded   prometheus.Gauge      // Number of artifacts held in memory
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics against a custom registry, which keeps
// test suites isolated from the global Prometheus state.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predmaint_predictions_total",
			Help: "Total number of prediction cycles completed",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "predmaint_prediction_failures_total",
			Help: "Total number of prediction cycles aborted with an error",
		}),
		SchemaMismatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "predmaint_schema_mismatches_total",
			Help: "Total number of predictions aborted on a feature/schema mismatch",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "predmaint_prediction_latency_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		FailureProbability: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "predmaint_failure_probability",
			Help:    "Distribution of predicted failure probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		RULEstimate: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "predmaint_rul_estimate_hours",
			Help:    "Distribution of remaining-useful-life estimates in operating hours",
			Buckets: []float64{100, 300, 500, 1000, 2000, 5000, 10000, 20000, 50000},
		}),
		ExplanationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predmaint_explanations_total",
			Help: "Total number of per-feature attributions computed",
		}),
		ExplanationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "predmaint_explanation_failures_total",
			Help: "Total number of attributions that fell back to the textual notice",
		}),
		ExplanationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "predmaint_explanation_latency_seconds",
			Help:    "Attribution latency in seconds",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		HTTPRequestsTotal: *factory.NewCounterVec(prometheus.CounterOpts{
			Name: "predmaint_http_requests_total",
			Help: "HTTP requests by route and status class",
		}, []string{"route", "status"}),
		ArtifactLoadTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "predmaint_artifact_load_seconds",
			Help: "Startup artifact load duration in seconds",
		}),
		ArtifactsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "predmaint_artifacts_loaded",
			Help: "Number of artifacts held in memory",
		}),
	}
}

// Sink methods below satisfy the inference engine's metrics interface, so
// the engine depends on behavior rather than on this package's types.

func (m *Metrics) PredictionsInc()                     { m.PredictionsTotal.Inc() }
func (m *Metrics) PredictionFailuresInc()              { m.PredictionFailures.Inc() }
func (m *Metrics) SchemaMismatchesInc()                { m.SchemaMismatches.Inc() }
func (m *Metrics) PredictionLatencyObserve(s float64)  { m.PredictionLatency.Observe(s) }
func (m *Metrics) ProbabilityObserve(p float64)        { m.FailureProbability.Observe(p) }
func (m *Metrics) RULObserve(hours float64)            { m.RULEstimate.Observe(hours) }
func (m *Metrics) ExplanationsInc()                    { m.ExplanationsTotal.Inc() }
func (m *Metrics) ExplanationFailuresInc()             { m.ExplanationFailures.Inc() }
func (m *Metrics) ExplanationLatencyObserve(s float64) { m.ExplanationLatency.Observe(s) }

// HTTPRequestInc counts one served request for the given route and status
// bucket ("2xx", "4xx", "5xx").
func (m *Metrics) HTTPRequestInc(route, status string) {
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
}
