// Package cache provides the page window cache that backs sequential reads
// from a paged source.
//
// A Cache resolves elements by absolute index and keeps only a small window of
// pages resident:
//
//   - index i lives on page i/PageSize+1 at offset i%PageSize
//   - a miss fetches the page (or a run of Concurrency pages in parallel)
//   - after every insertion the oldest inserted pages are evicted until at
//     most WindowSize pages remain (FIFO by insertion, not by access)
//   - every resolved element carries a one-step lookahead (HasNext), which
//     may fetch the following page when the element is the last of its page
//
// # Basic Usage
//
//	c, err := cache.New[Order](src, cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	for i := 0; ; i++ {
//		el, ok, err := c.Get(ctx, i)
//		if err != nil {
//			return err
//		}
//		if !ok {
//			break
//		}
//		process(el.Value)
//		if !el.HasNext {
//			break
//		}
//	}
//
// # Prefetching
//
//	c, err := cache.New[Order](src, cache.PrefetchConfig(100, 4))
//
// fetches four consecutive pages per miss, joins them and installs them
// together. A failing fetch surfaces as *PrefetchError and installs nothing.
//
// # End of source
//
// An empty page, or a page shorter than PageSize, marks the end of the source.
// Pages past the end are never requested. The cache walks through the states
// StateUnstarted, StateStreaming and StateExhausted exactly once, notifying the
// source (see package source) on the first and the last transition.
//
// # Metrics
//
//   - pagestream_pages_fetched_total{mode} - Pages installed ("single", "prefetch")
//   - pagestream_page_fetch_duration_seconds{mode} - Fetch latency
//   - pagestream_fetch_errors_total{mode} - Failed fetches
//   - pagestream_page_evictions_total - Evicted pages
//   - pagestream_sources_exhausted_total - Sources read to the end
package cache
