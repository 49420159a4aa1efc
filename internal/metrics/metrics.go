// Package metrics exports Prometheus counters and histograms for outbound API calls.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RobinCoderZhao/futuur-mcp/pkg/marketapi"
)

// Metrics holds the request collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates the collectors and registers them with Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "futuur_api_requests_total",
			Help: "Outbound Futuur API requests by method, endpoint class and outcome.",
		}, []string{"method", "class", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "futuur_api_request_duration_seconds",
			Help:    "Latency of outbound Futuur API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "class"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest implements marketapi.Observer.
func (m *Metrics) ObserveRequest(_ context.Context, ev marketapi.RequestEvent) {
	class := ev.Class.String()
	m.requests.WithLabelValues(ev.Method, class, marketapi.Outcome(ev.Err)).Inc()
	if ev.StatusCode != 0 {
		m.duration.WithLabelValues(ev.Method, class).Observe(ev.Duration.Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
