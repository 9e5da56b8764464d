package herdcache

import (
	"context"
	"time"

	cd "github.com/unkn0wn-root/herdcache/codec"
	st "github.com/unkn0wn-root/herdcache/store"
	ts "github.com/unkn0wn-root/herdcache/tagstore"
)

// Fetcher computes the value for a key on a cache miss. It runs at most once
// per stampede group, on the group's shared context: when the last interested
// caller leaves, ctx is canceled and the fetcher should stop promptly.
type Fetcher[V any] func(ctx context.Context) (V, error)

// Cache is the high-level, store-agnostic hybrid cache API with stampede
// protection. V is the caller's value type; serialization is handled by a
// pluggable Codec[V].
type Cache[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// GetOrCreate returns the cached value for key, or runs fetch exactly
	// once per stampede group to compute it. Concurrent calls for the same
	// key share one fetch and one result. The returned error is the
	// caller's own ctx error, or the fetch error as every joined caller
	// saw it. Coordination-internal errors never surface here.
	GetOrCreate(ctx context.Context, key string, fetch Fetcher[V], opts ...EntryOption) (V, error)

	// Get is a read-only probe: local store, then backing store. Concurrent
	// probes for one key collapse into a single backing read.
	Get(ctx context.Context, key string) (V, bool, error)

	// Set serializes and writes the value to both stores.
	Set(ctx context.Context, key string, value V, opts ...EntryOption) error

	// Remove deletes the entry from both stores.
	Remove(ctx context.Context, key string) error

	// RemoveByTag invalidates every entry carrying the tag. Stale entries
	// are rejected and removed lazily on their next read.
	RemoveByTag(ctx context.Context, tag string) error

	// InFlight reports the number of active stampede groups (diagnostic).
	InFlight() int
}

// Options tune the behavior of the cache.
// Only Namespace and Codec are required; others have sensible defaults.
// With both stores nil the cache still coalesces concurrent fetches.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions, e.g. "user"
	Codec     cd.Codec[V]

	Local   st.Store // in-process byte store (L1); nil => none
	Backing st.Store // out-of-process byte store (L2); nil => none

	Logger          Logger        // if nil, NopLogger
	Hooks           Hooks         // if nil, NopHooks
	DefaultTTL      time.Duration // backing entries; 0 => 10m
	LocalTTL        time.Duration // local entries; 0 => DefaultTTL
	MaxPayloadBytes int64         // serialized frame limit; 0 => 1MiB, <0 => unlimited
	CleanupInterval time.Duration // local tag-stamp sweep; 0 => 1h
	TagRetention    time.Duration // local tag-stamp retention; 0 => 30d
	Disabled        bool          // default false (enabled)
	TagStore        ts.Store      // nil => local in-process stamps
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
