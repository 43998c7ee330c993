// Package pagination provides parallel fetching of consecutive page runs.
//
// A page window cache that prefetches does not know how many pages a source
// holds, so instead of fetching "all pages" it fetches a fixed run of
// consecutive pages starting at the page that missed. Every page of the run is
// fetched in its own goroutine and the run is joined before anything is
// returned, so callers either see the complete run or an error.
//
// Example usage:
//
//	fetcher, err := pagination.NewBatchFetcher[Order](pagination.Config{Concurrency: 4})
//	if err != nil {
//		return err
//	}
//	pages, err := fetcher.FetchRun(ctx, src.FetchPage, 9, 100) // pages 9..12
//
// The batch fetcher:
//   - Starts one goroutine per page (errgroup, limited to Concurrency)
//   - Cancels the remaining fetches on the first failure
//   - Returns pages in page order regardless of completion order
//   - Reports the failing page as a *PageError
package pagination
