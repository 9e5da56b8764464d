// Package tagstore tracks per-tag invalidation stamps.
//
// A stamp is the unix-nano time of the tag's most recent invalidation; an
// entry carrying a tag is stale when its creation time does not postdate the
// tag's stamp. Missing tags read as stamp 0 (never invalidated).
package tagstore

import (
	"context"
	"time"
)

// Store abstracts where tag stamps live.
// Use Local (default) for in-process stamps, or Redis to share invalidations
// across replicas.
type Store interface {
	// Snapshot returns the tag's current stamp; missing => 0.
	Snapshot(ctx context.Context, tag string) (int64, error)
	// SnapshotMany returns stamps for many tags; missing => 0.
	SnapshotMany(ctx context.Context, tags []string) (map[string]int64, error)
	// Invalidate records an invalidation now and returns the new stamp.
	// Stamps are monotonic per store: repeated calls never move backwards.
	Invalidate(ctx context.Context, tag string) (int64, error)
	// Cleanup prunes long-inactive stamps if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
