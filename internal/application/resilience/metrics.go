package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// retryAttemptsTotal counts individual failed attempts that will be retried.
	retryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletd",
			Subsystem: "engine",
			Name:      "retry_attempts_total",
			Help:      "Failed command attempts that were retried",
		},
		[]string{"operation", "class"},
	)

	// retriesExhaustedTotal counts commands that ran out of retry budget.
	retriesExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletd",
			Subsystem: "engine",
			Name:      "retries_exhausted_total",
			Help:      "Commands whose retry budget was exhausted",
		},
		[]string{"operation", "class"},
	)

	// degradationFastFailTotal counts commands rejected by the degradation manager.
	degradationFastFailTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletd",
			Subsystem: "engine",
			Name:      "degradation_fastfail_total",
			Help:      "Commands fast-failed while a wallet is degraded",
		},
		[]string{"operation"},
	)
)
