package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		billingConnectionAttempts,
		billingDisconnects,
		billingReconnectDelay,
		catalogQueries,
	)
}

var (
	billingConnectionAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_connection_attempts_total",
			Help: "Count of billing service connection attempts (initial and reconnects).",
		},
	)

	billingDisconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_disconnects_total",
			Help: "Count of unexpected billing service disconnects.",
		},
	)

	// Scheduled backoff delay before the next reconnect attempt.
	billingReconnectDelay = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_reconnect_delay_seconds",
			Help:    "Backoff delay used for billing reconnect attempts.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 900},
		},
	)

	// result: ok|error
	catalogQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_catalog_queries_total",
			Help: "Count of product catalog queries by result.",
		},
		[]string{"result"},
	)
)

func IncConnectionAttempt() { billingConnectionAttempts.Inc() }

func IncDisconnect() { billingDisconnects.Inc() }

func ObserveReconnectDelay(d time.Duration) { billingReconnectDelay.Observe(d.Seconds()) }

func IncCatalogQuery(result string) { catalogQueries.WithLabelValues(result).Inc() }
