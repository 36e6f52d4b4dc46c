// Package metrics provides Prometheus metrics collection for the Foot-Perf
// services. It defines and manages the prediction, recommendation, HTTP and
// system metrics exposed on the /metrics endpoint for monitoring and
// alerting.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the services.
type Metrics struct {
	// Prediction metrics
	PredictionsTotal   prometheus.Counter   // Total number of prediction requests handled
	PredictionFailures prometheus.Counter   // Total number of failed prediction requests
	BatchRequests      prometheus.Counter   // Total number of batch uploads processed
	BatchRows          prometheus.Histogram // Distribution of batch dataset sizes
	PipelineLatency    prometheus.Histogram // End-to-end pipeline call latency in seconds
	ModelAge           prometheus.Gauge     // Age of the newest pipeline artifact in seconds

	// Recommendation metrics
	AdviceRequests  prometheus.Counter // Total number of advice texts requested
	AdviceFallbacks prometheus.Counter // Total number of times template advice was served

	// HTTP metrics
	HTTPRequestsTotal prometheus.Counter   // Total number of HTTP requests served
	HTTPErrorsTotal   prometheus.Counter   // Total number of HTTP 5xx responses
	HTTPDuration      prometheus.Histogram // HTTP request duration in seconds

	// Auth metrics
	LoginsTotal   prometheus.Counter // Total number of successful logins
	LoginFailures prometheus.Counter // Total number of rejected logins
	Registrations prometheus.Counter // Total number of accounts created
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for
// testing). This allows isolated metric collection in tests without
// touching the global Prometheus registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of prediction requests handled",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed prediction requests",
		}),
		BatchRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "batch_requests_total",
			Help: "Total number of batch uploads processed",
		}),
		BatchRows: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "batch_rows",
			Help:    "Distribution of batch dataset sizes in rows",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		PipelineLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_latency_seconds",
			Help:    "End-to-end pipeline call latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the newest pipeline artifact in seconds",
		}),
		AdviceRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "advice_requests_total",
			Help: "Total number of advice texts requested",
		}),
		AdviceFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "advice_fallbacks_total",
			Help: "Total number of times template advice was served",
		}),
		HTTPRequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		}),
		HTTPErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of HTTP 5xx responses",
		}),
		HTTPDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		LoginsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Total number of successful logins",
		}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "login_failures_total",
			Help: "Total number of rejected logins",
		}),
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Total number of accounts created",
		}),
	}
}

// PredictionsInc implements the engine's metrics interface.
func (m *Metrics) PredictionsInc() { m.PredictionsTotal.Inc() }

// FailuresInc implements the engine's metrics interface.
func (m *Metrics) FailuresInc() { m.PredictionFailures.Inc() }

// LatencyObserve implements the engine's metrics interface.
func (m *Metrics) LatencyObserve(seconds float64) { m.PipelineLatency.Observe(seconds) }

// ModelAgeSet implements the engine's metrics interface.
func (m *Metrics) ModelAgeSet(seconds float64) { m.ModelAge.Set(seconds) }

// BatchRowsObserve implements the engine's metrics interface.
func (m *Metrics) BatchRowsObserve(rows float64) {
	m.BatchRequests.Inc()
	m.BatchRows.Observe(rows)
}

// AdviceRequestInc implements the composer's metrics interface.
func (m *Metrics) AdviceRequestInc() { m.AdviceRequests.Inc() }

// AdviceFallbackInc implements the composer's metrics interface.
func (m *Metrics) AdviceFallbackInc() { m.AdviceFallbacks.Inc() }

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.Inc()
	m.HTTPDuration.Observe(elapsed.Seconds())
	if status >= 500 {
		m.HTTPErrorsTotal.Inc()
	}
}
