package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the cache layer and the dispatcher. Registered on the default
// registry; cmd/server exposes them on /metrics.
var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exdock_cache_hits_total",
		Help: "Cached payloads served without a rebuild, by cache domain.",
	}, []string{"domain"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exdock_cache_misses_total",
		Help: "Cache reads that found no payload or a dirty flag, by cache domain.",
	}, []string{"domain"})

	cacheRebuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exdock_cache_rebuilds_total",
		Help: "Cache rebuilds from source of truth, by cache domain.",
	}, []string{"domain"})

	cacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exdock_cache_invalidations_total",
		Help: "Dirty flag writes, by cache domain.",
	}, []string{"domain"})

	dispatcherRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exdock_dispatcher_requests_total",
		Help: "Dispatched operations by name and outcome code.",
	}, []string{"operation", "code"})
)
