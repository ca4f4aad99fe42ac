// Package resilience groups the fault tolerance building blocks used by deltawatch.
//
// The subpackages provide:
//   - retry: bounded retries with exponential or fixed backoff and a
//     transient/permanent failure classifier
//   - circuitbreaker: gobreaker wrappers for upstream hosts and the database
//
// Usage Example:
//
//	err := retry.Do(ctx, retry.ListingPolicy(), func(attempt int) error {
//	    return fetchOnce(ctx, attempt)
//	})
//
//	cb := circuitbreaker.New(circuitbreaker.FetchConfig("www.pararius.nl"))
//	err = cb.Run(func() error { return fetchOnce(ctx, 1) })
package resilience
