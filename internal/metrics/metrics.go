// Package metrics holds the process wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WalletOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_operations_total",
			Help: "Wallet ledger operations by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	RefundDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refund_decisions_total",
			Help: "Refund requests decided by admins",
		},
		[]string{"decision"},
	)

	LedgerDrift = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_drift_total",
			Help: "Accounts whose cached balance disagreed with the transaction log",
		},
	)

	EventPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_publish_errors_total",
			Help: "Domain events that could not be published",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)
)

// Outcome turns an operation error into the status label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
