package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		verifyAttempts,
		verifyDuration,
		verifyExhausted,
	)
}

var (
	// outcome: success|retry|failure
	verifyAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_verify_attempts_total",
			Help: "Count of server-side purchase verification attempts by outcome.",
		},
		[]string{"outcome"},
	)

	verifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "purchase_verify_duration_seconds",
			Help:    "Duration of one verification attempt in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	verifyExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "purchase_verify_exhausted_total",
			Help: "Count of verification jobs resolved as permanent failure after the retry cap.",
		},
	)
)

func ObserveVerifyAttempt(outcome string, d time.Duration) {
	verifyAttempts.WithLabelValues(outcome).Inc()
	verifyDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func IncVerifyExhausted() { verifyExhausted.Inc() }
