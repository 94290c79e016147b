// Package cache provides a Redis-backed response cache for the remote catalog
// API.
//
// The cache sits below the in-memory dataset: the dataset is rebuilt from the
// API on every start or reload, and this cache only saves the round trips
// when the responses have not expired. It is optional; when no Redis address
// is configured the client talks to the API directly.
//
// Features:
//
//   - TTL from Cache-Control max-age or Expires (DefaultTTL otherwise)
//   - ETag / Last-Modified conditional requests once an entry goes stale
//   - Deterministic keys derived from the request URL
//   - Prometheus metrics for hits, misses and errors
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient, 24*time.Hour)
//
//	key := cache.KeyFromURL(req.URL)
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API
//	}
//
// # HTTP Response Caching
//
//	entry, err := cache.ResponseToEntry(resp)
//	if err != nil {
//		return err
//	}
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// Stale entries are kept in Redis for StaleRetention after they expire so a
// conditional request can still revalidate them.
package cache
