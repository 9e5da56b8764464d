package tagstore

import (
	"context"
	"sync"
	"time"
)

// Local keeps tag stamps in-process (default).
// Optional cleanup loop to prune long-inactive tags.
//
// Pruning a stamp makes its tag read as "never invalidated" again, so the
// retention must exceed the longest TTL of any entry carrying the tag.
type Local struct {
	mu     sync.RWMutex
	stamps map[string]int64 // unix nanos of the last invalidation
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup

	retention time.Duration
}

var _ Store = (*Local)(nil)

func NewLocal(cleanupInterval, retention time.Duration) *Local {
	s := &Local{
		stamps:    make(map[string]int64),
		retention: retention,
	}
	if cleanupInterval > 0 && retention > 0 {
		s.ticker = time.NewTicker(cleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Cleanup(s.retention)
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Local) Snapshot(_ context.Context, tag string) (int64, error) {
	s.mu.RLock()
	st := s.stamps[tag] // zero value (0) if missing
	s.mu.RUnlock()
	return st, nil
}

// SnapshotMany acquires the read lock once and reads all requested tags.
// this avoids per-tag lock/unlock overhead.
func (s *Local) SnapshotMany(_ context.Context, tags []string) (map[string]int64, error) {
	out := make(map[string]int64, len(tags))
	s.mu.RLock()
	for _, t := range tags {
		out[t] = s.stamps[t]
	}
	s.mu.RUnlock()
	return out, nil
}

// Invalidate stamps the tag with now, nudged forward when the clock has not
// advanced past the previous stamp (same-nanosecond invalidations stay
// strictly ordered).
func (s *Local) Invalidate(_ context.Context, tag string) (int64, error) {
	now := time.Now().UnixNano()
	s.mu.Lock()
	if prev := s.stamps[tag]; now <= prev {
		now = prev + 1
	}
	s.stamps[tag] = now
	s.mu.Unlock()
	return now, nil
}

func (s *Local) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-retention).UnixNano()

	s.mu.Lock()
	for t, st := range s.stamps {
		if st < cutoff {
			delete(s.stamps, t)
		}
	}
	s.mu.Unlock()
}

func (s *Local) Close(_ context.Context) error {
	if s.stopCh != nil {
		close(s.stopCh)
		if s.ticker != nil {
			s.ticker.Stop() // stop ticker before waiting
		}
		s.wg.Wait()
	}
	return nil
}
