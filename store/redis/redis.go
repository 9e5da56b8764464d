// Package redis adapts redis/go-redis as the distributed backing store.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	st "github.com/unkn0wn-root/herdcache/store"
)

var ErrNilClient = errors.New("redis store: nil client")

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ st.Store = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this store exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (s *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // treat non-positive TTLs as "no expiry" per store contract
	}

	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Redis) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Redis) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
