package redissource

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for Redis list sources.
var (
	// RedisPages counts pages read with LRANGE.
	RedisPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagestream_redis_pages_total",
		Help: "Total pages read from Redis lists",
	})

	// RedisErrors counts Redis errors by operation.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagestream_redis_errors_total",
		Help: "Total Redis errors by operation",
	}, []string{"operation"})
)
