package herdcache

import "time"

// entryFlags travel inside the stampede key: calls that differ in any of
// these bits must not share a flight.
type entryFlags uint8

const (
	flagSkipLocal entryFlags = 1 << iota
	flagSkipBacking
	flagProbe // byte probe (read-only Get), not a typed value fetch
)

type entryOptions struct {
	ttl        time.Duration
	localTTL   time.Duration
	tags       []string
	flags      entryFlags
	noCoalesce bool
}

// EntryOption tunes a single cache operation.
type EntryOption func(*entryOptions)

// WithTTL overrides the backing-store TTL for this entry.
func WithTTL(d time.Duration) EntryOption {
	return func(o *entryOptions) { o.ttl = d }
}

// WithLocalTTL overrides the local-store TTL for this entry.
func WithLocalTTL(d time.Duration) EntryOption {
	return func(o *entryOptions) { o.localTTL = d }
}

// WithTags attaches invalidation tags to the entry. A later RemoveByTag on
// any of them makes the entry stale.
func WithTags(tags ...string) EntryOption {
	return func(o *entryOptions) { o.tags = tags }
}

// SkipLocal bypasses the local store for this operation.
func SkipLocal() EntryOption {
	return func(o *entryOptions) { o.flags |= flagSkipLocal }
}

// SkipBacking bypasses the backing store for this operation.
func SkipBacking() EntryOption {
	return func(o *entryOptions) { o.flags |= flagSkipBacking }
}

// WithoutCoalescing runs the fetch on a private flight driven by the caller's
// own context instead of joining the shared stampede table. Use it when a
// caller must not share cancellation with peers.
func WithoutCoalescing() EntryOption {
	return func(o *entryOptions) { o.noCoalesce = true }
}

func (c *cache[V]) resolveEntry(opts []EntryOption) entryOptions {
	eo := entryOptions{ttl: c.defaultTTL, localTTL: c.localTTL}
	for _, opt := range opts {
		opt(&eo)
	}
	if eo.localTTL == 0 {
		eo.localTTL = eo.ttl
	}
	return eo
}
