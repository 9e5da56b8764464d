package herdcache

import (
	"context"
	"math"
	"sync/atomic"
)

// stampedeKey names one in-flight fill. Equality is structural so the key can
// index the coordinator table; flags are part of identity because calls with
// different entry behavior must not share a computation.
type stampedeKey struct {
	key   string
	flags entryFlags
}

// stampedeState is one in-flight fill shared by every caller that asked for
// the same key while it was running. The creator counts as the first caller;
// joiners attach via tryAddCaller and everyone leaves via removeCaller.
//
// value/found/err are written once by run before done is closed and only read
// after done is closed.
type stampedeState[V any] struct {
	key     stampedeKey
	ctx     context.Context    // shared across all joined callers
	cancel  context.CancelFunc // nil when the group is non-cancelable
	callers atomic.Int64       // active callers; 0 => burned, no new joiners
	tracked bool               // registered in the coordinator table
	done    chan struct{}      // closed exactly once after run publishes

	value V
	found bool
	err   error
}

// newStampede builds a shared flight. Whether the group is cancelable is
// decided once, here: if the initiating caller cannot be canceled the whole
// group runs to completion no matter who joins or leaves later.
func newStampede[V any](k stampedeKey, cancelable bool) *stampedeState[V] {
	s := &stampedeState[V]{key: k, tracked: true, done: make(chan struct{})}
	s.callers.Store(1)
	if cancelable {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	} else {
		s.ctx = context.Background()
	}
	return s
}

// newUnsharedStampede builds a flight driven directly by the caller's own
// context: no merging, no table registration. Used by the uncoalesced path.
func newUnsharedStampede[V any](k stampedeKey, ctx context.Context) *stampedeState[V] {
	s := &stampedeState[V]{key: k, ctx: ctx, done: make(chan struct{})}
	s.callers.Store(1)
	return s
}

// tryAddCaller joins the flight unless the caller count already reached zero.
// Overflow is fatal: wrapping the counter would let a burned state accept
// callers again, so it panics instead.
func (s *stampedeState[V]) tryAddCaller() bool {
	for {
		n := s.callers.Load()
		if n == 0 {
			return false
		}
		if n == math.MaxInt64 {
			panic("herdcache: stampede caller count overflow")
		}
		if s.callers.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// removeCaller drops one caller. The 1->0 transition cancels the shared
// context; the atomic decrement hands that transition to exactly one
// goroutine, so the group is canceled at most once.
func (s *stampedeState[V]) removeCaller() {
	if s.callers.Add(-1) == 0 && s.cancel != nil {
		s.cancel()
	}
}

// wait blocks until the flight publishes or the caller's own context fires.
// Either way the caller leaves the group before wait returns.
func (s *stampedeState[V]) wait(ctx context.Context) (V, bool, error) {
	select {
	case <-s.done:
		s.removeCaller()
		return s.value, s.found, s.err
	case <-ctx.Done():
		s.removeCaller()
		var zero V
		return zero, false, ctx.Err()
	}
}

// discard releases a freshly built state that lost an insertion race and was
// never visible to any other caller.
func (s *stampedeState[V]) discard() {
	if s.cancel != nil {
		s.cancel()
	}
}

// debugCallerCount is observability only; never use it for control flow.
func (s *stampedeState[V]) debugCallerCount() int64 { return s.callers.Load() }
