// Package metrics exposes Tock's Prometheus collectors.
//
// Collectors are registered on the default registry via promauto so that any
// package can record without wiring, and the app mounts Handler() at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WSConnections tracks currently registered realtime connections.
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tock_ws_connections",
		Help: "Number of live WebSocket connections registered in the hub.",
	})

	// StatePushes counts all_timers envelopes enqueued to connections.
	StatePushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tock_state_pushes_total",
		Help: "Total full-state snapshots enqueued to connections.",
	})

	// StatePushDrops counts connections dropped from the registry because a
	// push could not be delivered (closed peer or saturated send queue).
	StatePushDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tock_state_push_drops_total",
		Help: "Total connections evicted after an undeliverable state push.",
	})

	// TimerMutations counts createTimer/stopTimer outcomes across both the
	// duplex and the discrete surfaces.
	TimerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tock_timer_mutations_total",
		Help: "Total timer mutations by operation and result.",
	}, []string{"op", "result"})
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
