// Package monitor exposes Prometheus metrics for the motion server:
// session count, processed input events by type, and connected renderer
// clients.
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "robotgrid",
		Name:      "active_sessions",
		Help:      "Number of live robot sessions",
	})
	connectedRenderers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "robotgrid",
		Name:      "connected_renderers",
		Help:      "Number of websocket renderer clients",
	})
	eventsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "robotgrid",
		Name:      "events_processed_total",
		Help:      "Input events processed, by event type",
	}, []string{"event"})
	eventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "robotgrid",
		Name:      "events_dropped_total",
		Help:      "Raw key events dropped while the machine was not listening",
	})
)

func init() {
	prometheus.MustRegister(
		activeSessions,
		connectedRenderers,
		eventsProcessed,
		eventsDropped,
	)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetActiveSessions records the current session count.
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// IncConnectedRenderers records a renderer client connecting.
func IncConnectedRenderers() {
	connectedRenderers.Inc()
}

// DecConnectedRenderers records a renderer client disconnecting.
func DecConnectedRenderers() {
	connectedRenderers.Dec()
}

// IncEventsProcessed counts one processed event by wire name.
func IncEventsProcessed(event string) {
	eventsProcessed.WithLabelValues(event).Inc()
}

// IncEventsDropped counts a raw key event dropped by the subscription
// gate.
func IncEventsDropped() {
	eventsDropped.Inc()
}
