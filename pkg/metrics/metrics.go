// Package metrics exposes Prometheus instrumentation for the group ordering
// server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the server's Prometheus collectors.
type Metrics struct {
	// RPCs counts completed RPCs by procedure and result code.
	RPCs *prometheus.CounterVec
	// Events counts broadcast events by kind.
	Events *prometheus.CounterVec
	// Subscribers tracks currently connected event stream subscribers.
	Subscribers prometheus.Gauge
}

// New creates and registers the server metrics with the default registry.
// Call once per process.
func New() *Metrics {
	rpcs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opentab",
		Subsystem: "grouporder",
		Name:      "rpcs_total",
		Help:      "Total number of completed RPCs.",
	}, []string{"procedure", "code"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opentab",
		Subsystem: "grouporder",
		Name:      "events_published_total",
		Help:      "Total number of broadcast events published.",
	}, []string{"kind"})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "opentab",
		Subsystem: "grouporder",
		Name:      "event_subscribers",
		Help:      "Currently connected event stream subscribers.",
	})

	prometheus.MustRegister(rpcs, events, subscribers)
	return &Metrics{RPCs: rpcs, Events: events, Subscribers: subscribers}
}

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
