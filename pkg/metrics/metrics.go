// Package metrics exposes the Prometheus metrics of pagestream.
// The metrics themselves are defined with promauto in the packages that
// record them (cache, stream, httpsource, redissource) and register with the
// default registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the registry all pagestream metrics register with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an HTTP handler exposing all registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// NewMux returns a mux serving /metrics and /health.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Serve serves NewMux on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           NewMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("component", "metrics").Str("addr", addr).Msg("Serving metrics")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Metrics Documentation
//
// Page Cache Metrics (pkg/cache):
//   - pagestream_pages_fetched_total{mode} (Counter): Non-empty pages installed, mode single or prefetch
//   - pagestream_page_fetch_duration_seconds{mode} (Histogram): Page fetch duration, whole run for prefetch
//   - pagestream_fetch_errors_total{mode} (Counter): Failed page fetches
//   - pagestream_page_evictions_total (Counter): Pages evicted from page windows
//   - pagestream_sources_exhausted_total (Counter): Sources read to the end
//
// Stream Metrics (pkg/stream):
//   - pagestream_elements_delivered_total (Counter): Elements returned by streams
//   - pagestream_batches_total (Counter): Batches returned by batch iterators
//
// HTTP Source Metrics (pkg/httpsource):
//   - pagestream_http_requests_total{status} (Counter): Page requests by HTTP status or network_error
//   - pagestream_http_request_duration_seconds (Histogram): Page request duration
//   - pagestream_http_skipped_pages_total (Counter): Pages answered from X-Pages without a request
//   - pagestream_http_retries_total{error_class} (Counter): Retry attempts by error class
//   - pagestream_http_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - pagestream_http_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Redis Source Metrics (pkg/redissource):
//   - pagestream_redis_pages_total (Counter): Pages read with LRANGE
//   - pagestream_redis_errors_total{operation} (Counter): Redis errors by operation
//
// Example Prometheus Queries:
//
//   # Window efficiency: evictions per installed page
//   rate(pagestream_page_evictions_total[5m]) / sum(rate(pagestream_pages_fetched_total[5m]))
//
//   # P95 page fetch latency by mode
//   histogram_quantile(0.95, sum by (le, mode) (rate(pagestream_page_fetch_duration_seconds_bucket[5m])))
//
//   # HTTP retry rate
//   sum(rate(pagestream_http_retries_total[5m])) / sum(rate(pagestream_http_requests_total[5m]))
