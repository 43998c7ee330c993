package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch modes used as metric label values.
const (
	modeSingle   = "single"
	modePrefetch = "prefetch"
)

var (
	// PagesFetched tracks pages installed into a window by fetch mode
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagestream_pages_fetched_total",
			Help: "Total number of non-empty pages installed into page windows",
		},
		[]string{"mode"}, // "single", "prefetch"
	)

	// FetchDuration tracks how long a page resolution took by fetch mode
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagestream_page_fetch_duration_seconds",
			Help:    "Duration of page fetches (whole run for prefetch)",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"mode"},
	)

	// FetchErrors tracks failed page fetches by fetch mode
	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagestream_fetch_errors_total",
			Help: "Total number of failed page fetches",
		},
		[]string{"mode"},
	)

	// PageEvictions tracks pages evicted from windows
	PageEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagestream_page_evictions_total",
			Help: "Total number of pages evicted from page windows",
		},
	)

	// SourcesExhausted tracks sources read to the end
	SourcesExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagestream_sources_exhausted_total",
			Help: "Total number of sources read to the end",
		},
	)
)
