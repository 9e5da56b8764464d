package tagstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// invalidateScript keeps stamps monotonic server-side: a stamp never moves
// backwards even when replica clocks disagree. Stamps are handled as strings
// because unix nanos exceed Lua number precision.
var invalidateScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
local stamp = ARGV[1]
if cur and cur >= stamp then
  -- nudge: bump the microsecond digits so the full 19-digit value stays
  -- within double precision (the contract only needs strictly-greater)
  stamp = string.format('%d', tonumber(string.sub(cur, 1, -4)) + 1) .. string.sub(cur, -3)
end
redis.call('SET', KEYS[1], stamp)
if ARGV[2] ~= '0' then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return stamp
`)

// Redis shares tag stamps across processes and survives restarts.
// Optionally, a TTL can be applied to stamp keys to prevent unbounded growth.
// If a stamp key expires, readers observe stamp=0 and previously invalidated
// entries may serve again, so the TTL must exceed the longest entry TTL.
type Redis struct {
	rdb redis.UniversalClient
	ns  string        // logical namespace; should match Options.Namespace
	ttl time.Duration // optional TTL for stamp keys; 0 disables expiry
}

var _ Store = (*Redis)(nil)

// NewRedis creates a Redis-backed tag store without TTL.
func NewRedis(client redis.UniversalClient, namespace string) *Redis {
	return &Redis{rdb: client, ns: namespace}
}

// NewRedisWithTTL creates a Redis-backed tag store with TTL.
// If ttl <= 0, keys do not expire.
func NewRedisWithTTL(client redis.UniversalClient, namespace string, ttl time.Duration) *Redis {
	return &Redis{rdb: client, ns: namespace, ttl: ttl}
}

func (s *Redis) key(tag string) string { return "tag:" + s.ns + ":" + tag }

// Snapshot returns the tag's current stamp.
// Missing tags are treated as stamp 0.
func (s *Redis) Snapshot(ctx context.Context, tag string) (int64, error) {
	res, err := s.rdb.Get(ctx, s.key(tag)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	st, err := strconv.ParseInt(res, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis tag stamp parse: %w", err)
	}
	return st, nil
}

// SnapshotMany returns stamps for multiple tags.
// Missing tags map to 0.
func (s *Redis) SnapshotMany(ctx context.Context, tags []string) (map[string]int64, error) {
	if len(tags) == 0 {
		return map[string]int64{}, nil
	}
	keys := make([]string, len(tags))
	for i, t := range tags {
		keys[i] = s.key(t)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(tags))
	for i, v := range vals {
		switch vv := v.(type) {
		case nil:
			out[tags[i]] = 0
		case string:
			st, err := strconv.ParseInt(vv, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("redis tag stamp parse at %s: %w", tags[i], err)
			}
			out[tags[i]] = st
		case []byte:
			st, err := strconv.ParseInt(string(vv), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("redis tag stamp parse at %s: %w", tags[i], err)
			}
			out[tags[i]] = st
		default:
			st, err := strconv.ParseInt(fmt.Sprint(vv), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("redis tag stamp parse at %s: %w", tags[i], err)
			}
			out[tags[i]] = st
		}
	}
	return out, nil
}

// Invalidate records the invalidation and (optionally) refreshes TTL in one
// scripted round-trip.
func (s *Redis) Invalidate(ctx context.Context, tag string) (int64, error) {
	now := strconv.FormatInt(time.Now().UnixNano(), 10)
	ttlMillis := "0"
	if s.ttl > 0 {
		ttlMillis = strconv.FormatInt(s.ttl.Milliseconds(), 10)
	}
	res, err := invalidateScript.Run(ctx, s.rdb, []string{s.key(tag)}, now, ttlMillis).Text()
	if err != nil {
		return 0, err
	}
	st, err := strconv.ParseInt(res, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis tag stamp parse: %w", err)
	}
	return st, nil
}

// Cleanup is not applicable for Redis (expiry handles it if TTL is set).
func (s *Redis) Cleanup(time.Duration) {}

// Close closes the underlying Redis client.
func (s *Redis) Close(ctx context.Context) error { return s.rdb.Close() }
