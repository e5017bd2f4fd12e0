package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_search_request_duration_seconds",
			Help:    "AI search request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"intent", "status"},
	)

	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_search_requests_total",
			Help: "Total number of AI search requests",
		},
		[]string{"intent", "status"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_cache_hits_total",
			Help: "Total number of Redis cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_cache_misses_total",
			Help: "Total number of Redis cache misses",
		},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream provider request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "operation", "status"},
	)

	ResolverFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sports_resolver_fallback_total",
			Help: "Total number of sports resolver fallback invocations",
		},
		[]string{"kind"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	SlowQueryCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slow_query_total",
			Help: "Total number of slow AI search queries",
		},
		[]string{"severity", "intent"},
	)

	ChatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total number of chat messages by outcome",
		},
		[]string{"status"},
	)

	ChatViewersGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_viewers",
			Help: "Current number of viewers connected to an event channel",
		},
		[]string{"event_id"},
	)

	ChatChannelsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_broadcast_channels",
			Help: "Number of live broadcast channels in the hub registry",
		},
	)

	ActivityEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_total",
			Help: "Total number of activity events processed by the analytics pipeline",
		},
		[]string{"type", "status"},
	)
)
