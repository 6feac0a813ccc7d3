// Package sync keeps the local board cache in step with the remote store.
//
// Overview
//
// The engine fetches every public board from the remote document store,
// converts the documents to boards, and replaces the local cache with the
// result. When the store is unreachable, reads fall back to whatever the
// last successful pass cached.
//
//	Remote store (authoritative)
//	     └── boards where isPublic == true
//	                  ↓
//	               Engine  ── skips documents that fail to decode
//	                  ↓
//	            Local cache (clear-then-insert, one transaction)
//
// Usage
//
//	store := remote.NewMemoryStore()
//	c, err := cache.Open(".teamboard/cache.db")
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	if err := c.InitSchema(); err != nil {
//	    return err
//	}
//
//	engine := sync.New(store, c, nil, sync.Options{})
//	result := engine.SyncWithRetry(ctx, 3, sync.ExponentialBackoff{Base: 500 * time.Millisecond})
//	if !result.Succeeded() {
//	    fmt.Println(result.FallbackMessage)
//	}
//
// State
//
// Each pass moves the engine Idle → Syncing → Success or Failed. Retries
// happen while Syncing and are not observable as a separate state.
//
// Error Handling
//
//   - Documents that fail to decode are logged and skipped
//   - Transport failures are retried by SyncWithRetry, then reported in Result
//   - Cache write failures are logged; the fetched boards are still returned
//   - SyncWithRetry never returns an error; every failure is in the Result
//
// Concurrency
//
// An Engine is safe for concurrent use. Cache replacement is serialized by
// the cache itself, so overlapping passes never interleave a clear with
// another pass's inserts.
package sync
