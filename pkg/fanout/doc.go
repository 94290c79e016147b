// Package fanout runs one fetch per item concurrently and joins the results.
//
// Two failure policies are offered and named so callers state which one an
// operation uses:
//
//   - PolicyAllOrNothing (All): the first failure cancels the rest and the
//     whole batch fails with one *BatchError; no partial results.
//   - PolicyDegrade (Each): every item runs to completion; a failed item is
//     replaced by the caller's fallback value and the batch never fails.
//
// Both keep input order in the output and bound the number of in-flight
// fetches with Config.MaxConcurrency (0 = one goroutine per item).
//
// Example usage:
//
//	cfg := fanout.DefaultConfig()
//	details, err := fanout.All(ctx, cfg, summaries, func(ctx context.Context, s Summary) (Detail, error) {
//		return api.Detail(ctx, s.URL)
//	})
package fanout
