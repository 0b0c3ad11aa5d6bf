// internal/app/system/metrics/metrics.go

// Package metrics exposes Prometheus instrumentation for roster operations.
// Collectors are registered on the default registry and served by the
// /metrics endpoint mounted in bootstrap.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RosterOps counts roster store operations by operation and outcome.
	RosterOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maktabhub_roster_operations_total",
		Help: "Roster store operations by operation and outcome.",
	}, []string{"op", "outcome"})

	// TxnRetries counts transaction attempts retried after a conflict.
	TxnRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maktabhub_txn_retries_total",
		Help: "Transaction attempts retried after a write conflict.",
	})

	// TxnFallbacks counts transactions degraded to sequential writes
	// because the server does not support them.
	TxnFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maktabhub_txn_fallbacks_total",
		Help: "Transactions executed without atomicity on standalone servers.",
	})

	// PickupMessages counts chat messages fanned out to websocket clients.
	PickupMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maktabhub_pickup_messages_total",
		Help: "Pickup chat messages broadcast to connected clients.",
	})
)

// ObserveRosterOp records one roster operation result.
func ObserveRosterOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RosterOps.WithLabelValues(op, outcome).Inc()
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
