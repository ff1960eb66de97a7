// Package cache provides a write-back batching cache between the ladder
// fetcher and the data store.
//
// Pages arrive in whatever size the API returns them. The cache re-chunks them
// into fixed-size batches and hands every full batch to a Persister, which is
// expected to write it in one transaction. Whatever is left over when the
// ingestion finishes is persisted on Close.
//
// # Basic Usage
//
//	err := cache.With(ctx, 16, store.Persister[store.Player](db, run),
//		func(c *cache.BatchCache) error {
//			for entries, err := range fetcher.Pages(ctx) {
//				if err != nil {
//					return err
//				}
//				if err := c.Add(ctx, entries); err != nil {
//					return err
//				}
//			}
//			return nil
//		})
//
// With guarantees Close. Close persists the remainder only when the block
// succeeded; when it failed, pending records are left unpersisted and the
// block's error is returned unchanged.
//
// # Batch Size
//
// A batch size of 0 persists every Add call as one batch. Otherwise full
// batches are persisted as soon as they fill up and a shorter remainder waits
// for the next Add or for Close.
//
// # Metrics
//
//   - ladder_cache_flushes_total{cache} - Persisted batches
//   - ladder_cache_flush_records{cache} - Records per persisted batch
//   - ladder_cache_persist_errors_total{cache} - Failed persist calls
//   - ladder_cache_pending_records{cache} - Records waiting for a full batch
package cache
