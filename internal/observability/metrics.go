package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	httpErrorsTotal      *prometheus.CounterVec
	evaluationsTotal     *prometheus.CounterVec
	evaluationsInFlight  prometheus.Gauge
	eventsPublishedTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essay_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "essay_http_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5, 10, 30},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essay_http_errors_total",
			Help: "Total number of error responses.",
		}, []string{"method", "route", "status"})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essay_evaluations_total",
			Help: "Completed essay evaluations by outcome.",
		}, []string{"outcome"})

		evaluationsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "essay_evaluations_in_flight",
			Help: "Evaluations currently waiting on the model.",
		})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essay_events_published_total",
			Help: "Evaluation events published to the message broker.",
		}, []string{"status"})

		prometheus.MustRegister(httpRequestsTotal, httpLatencySeconds, httpErrorsTotal, evaluationsTotal, evaluationsInFlight, eventsPublishedTotal)
	})
}

// HTTPRequests exposes the counter for HTTP requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for HTTP requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for HTTP error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// Evaluations exposes the evaluation outcome counter (passed, failed, error).
func Evaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// EvaluationsInFlight exposes the gauge of outstanding evaluations.
func EvaluationsInFlight() prometheus.Gauge {
	RegisterMetrics()
	return evaluationsInFlight
}

// EventsPublished exposes the counter of published evaluation events.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}
