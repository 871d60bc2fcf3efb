package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedhub_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// PostEventsPublished counts post change events by action and delivery outcome.
	PostEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_post_events_published_total",
		Help: "Total number of post change events published",
	}, []string{"action", "outcome"})

	// RateLimitRejections counts requests refused by a named rate limit.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_rate_limit_rejections_total",
		Help: "Total number of requests rejected by rate limiting",
	}, []string{"limit"})

	// MediaCleanupFailures counts image artifacts that could not be removed.
	MediaCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedhub_media_cleanup_failures_total",
		Help: "Total number of image artifacts that failed to be deleted",
	})
)
