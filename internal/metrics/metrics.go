// Package metrics exposes Prometheus instrumentation for the chat client:
// transport health, realtime event throughput, REST latency and calls.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransportConnected is 1 while the realtime socket is up.
	TransportConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "goopchat_transport_connected",
		Help: "Whether the realtime transport is connected",
	})

	// EventsTotal counts inbound transport events by name and outcome
	// ("applied", "ignored", "invalid").
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goopchat_events_total",
		Help: "Inbound realtime events processed",
	}, []string{"event", "outcome"})

	// APIRequests counts REST calls by route and status class.
	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goopchat_api_requests_total",
		Help: "REST requests to the chat server",
	}, []string{"route", "status"})

	APILatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "goopchat_api_latency_seconds",
		Help:    "REST request latency in seconds",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"route"})

	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "goopchat_online_users",
		Help: "Users in the last presence snapshot",
	})

	// CallsEnded counts finished calls by kind and whether they connected.
	CallsEnded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goopchat_calls_ended_total",
		Help: "Call sessions that reached Ended",
	}, []string{"kind", "connected"})
)

func init() {
	prometheus.MustRegister(
		TransportConnected,
		EventsTotal,
		APIRequests,
		APILatency,
		OnlineUsers,
		CallsEnded,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
