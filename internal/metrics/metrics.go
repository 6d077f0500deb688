package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pair graph metrics
	PairCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aptos_router_pair_count",
			Help: "Number of pairs in the routing graph",
		},
		[]string{"protocol"},
	)

	TokenCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aptos_router_token_count",
		Help: "Number of distinct tokens in the routing graph",
	})

	MetadataDeltasApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aptos_router_metadata_deltas_applied_total",
			Help: "Total number of pair metadata replacements",
		},
		[]string{"protocol", "source"},
	)

	DeltaMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aptos_router_delta_messages_total",
		Help: "Total number of change batches handled by the state coordinator",
	})

	InboxDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aptos_router_inbox_depth",
		Help: "Messages waiting in the state coordinator inbox",
	})

	// Ledger watcher metrics
	LedgerVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aptos_router_ledger_version",
		Help: "Next ledger version the watcher will fetch",
	})

	WatcherBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aptos_router_watcher_batches_total",
		Help: "Total number of non-empty transaction batches processed",
	})

	WatcherChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aptos_router_watcher_changes_total",
		Help: "Total number of watched write-set changes forwarded",
	})

	WatcherFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aptos_router_watcher_failures_total",
			Help: "Total number of failed watcher polls",
		},
		[]string{"reason"},
	)

	WatcherEmptyPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aptos_router_watcher_empty_polls_total",
		Help: "Total number of polls that found no new transactions",
	})

	WatcherFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aptos_router_watcher_fetch_duration_seconds",
		Help:    "Transaction batch fetch duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	// Route metrics
	RouteQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aptos_router_route_queries_total",
			Help: "Total number of route queries",
		},
		[]string{"mode", "status"},
	)

	RouteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aptos_router_route_duration_seconds",
			Help:    "Route search duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"mode"},
	)

	RouteCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aptos_router_route_cache_hits_total",
		Help: "Total number of route cache hits",
	})

	RouteCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aptos_router_route_cache_misses_total",
		Help: "Total number of route cache misses",
	})

	RouteCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aptos_router_route_cache_size",
		Help: "Current number of entries in the route cache",
	})

	// Startup metrics
	DiscoveryDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aptos_router_discovery_duration_seconds",
		Help: "Duration of the last pair discovery or snapshot load",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aptos_router_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aptos_router_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
