// Package metrics groups the Prometheus instruments recall exposes on /metrics.
//
// Every Metrics owns its own registry so several servers (and test suites) can
// coexist in one process. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "recall"

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	registry *prometheus.Registry

	Requests         *prometheus.CounterVec
	StreamFragments  *prometheus.CounterVec
	ProviderErrors   *prometheus.CounterVec
	MemoryOps        *prometheus.CounterVec
	MemoryOpDuration *prometheus.HistogramVec
	Events           *prometheus.CounterVec
}

// New creates a Metrics with a fresh registry under namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		StreamFragments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_fragments_total",
			Help:      "Completion fragments written to clients by memory backend.",
		}, []string{"backend"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Failed completions by provider.",
		}, []string{"provider"}),
		MemoryOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_operations_total",
			Help:      "Memory store operations by backend, operation and result.",
		}, []string{"backend", "op", "result"}),
		MemoryOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "memory_operation_duration_seconds",
			Help:      "Latency of memory store operations.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"backend", "op"}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_events_total",
			Help:      "Turn events by outcome (published, failed, dropped).",
		}, []string{"result"}),
	}
}

// ObserveRequest counts a finished HTTP request.
func (m *Metrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, statusLabel(status)).Inc()
}

// ObserveFragment counts a fragment written to a client.
func (m *Metrics) ObserveFragment(backend string) {
	if m == nil {
		return
	}
	m.StreamFragments.WithLabelValues(backend).Inc()
}

// ObserveProviderError counts a failed completion.
func (m *Metrics) ObserveProviderError(provider string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider).Inc()
}

// ObserveMemoryOp records the outcome and latency of a memory store call.
func (m *Metrics) ObserveMemoryOp(backend, op string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.MemoryOps.WithLabelValues(backend, op, result).Inc()
	m.MemoryOpDuration.WithLabelValues(backend, op).Observe(time.Since(started).Seconds())
}

// ObserveEvent counts a turn event outcome.
func (m *Metrics) ObserveEvent(result string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
