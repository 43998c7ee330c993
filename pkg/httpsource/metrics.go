package httpsource

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for page requests.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagestream_http_requests_total",
		Help: "Total page requests by response status",
	}, []string{"status"})

	httpRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagestream_http_request_duration_seconds",
		Help:    "Page request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	})

	httpSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagestream_http_skipped_pages_total",
		Help: "Total pages answered empty from the X-Pages header without a request",
	})

	httpRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagestream_http_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	httpRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pagestream_http_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	httpRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagestream_http_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)
