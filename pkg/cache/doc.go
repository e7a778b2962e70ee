// Package cache provides a Redis-backed response cache for the comics API.
//
// Only item-level operations are cached: list-items responses keyed by the
// collection locator and get-detail responses keyed by the item locator. The
// collection list itself is always fetched fresh so a run sees the current
// set of collections.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, time.Hour)
//
//	key := cache.Key{Operation: cache.OperationDetail, Locator: url}
//	data, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch, then
//		_ = manager.Set(ctx, key, body)
//	}
//
// # Metrics
//
//   - harvest_cache_hits_total{operation} - Cache hits
//   - harvest_cache_misses_total{operation} - Cache misses
//   - harvest_cache_errors_total{operation} - Redis errors by cache call (get, set, delete)
//
// Cache errors never fail a fetch; callers fall back to the remote call.
package cache
