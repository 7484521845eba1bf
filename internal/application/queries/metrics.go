package queries

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "walletd",
		Subsystem: "query",
		Name:      "cache_hits_total",
		Help:      "Wallet snapshot cache hits",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "walletd",
		Subsystem: "query",
		Name:      "cache_misses_total",
		Help:      "Wallet snapshot cache misses or cache errors",
	})
)
