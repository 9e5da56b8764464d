// Package herdcache implements a store-agnostic hybrid cache with stampede
// protection: concurrent GetOrCreate calls for one key collapse into a single
// fetch whose result every caller shares.
//
// Components:
//   - store.Store: byte store with TTL (e.g. Ristretto, BigCache local;
//     Redis backing).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - tagstore.Store: invalidation stamp per tag. Local (in-process) by
//     default, optional Redis implementation for multi-replica setups.
//
// Coordination:
//
// Each in-flight fill is a reference-counted stampede group. Callers join an
// existing group (their count is tracked atomically) or create one; the fetch
// runs exactly once on the group's shared context. When the last interested
// caller leaves early, the shared context is canceled and the fetch should
// stop. A group created by a caller without a cancelable context is
// non-cancelable for its whole lifetime.
//
// Entries are framed with their creation time and tags:
//
//	v, err := cache.GetOrCreate(ctx, "user:42", fetchUser,
//	    herdcache.WithTags("user"), herdcache.WithTTL(5*time.Minute))
//	_ = cache.RemoveByTag(ctx, "user") // lazily drops every tagged entry
package herdcache
