package herdcache

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

func TestStampedeJoinAfterBurnFails(t *testing.T) {
	s := newStampede[int](stampedeKey{key: "k"}, true)

	if !s.tryAddCaller() {
		t.Fatal("join on a live state must succeed")
	}
	s.removeCaller()
	s.removeCaller() // creator leaves; count hits zero

	if s.tryAddCaller() {
		t.Fatal("join on a burned state must fail")
	}
	if got := s.debugCallerCount(); got != 0 {
		t.Fatalf("caller count = %d, want 0", got)
	}
}

func TestStampedeLastLeaverCancelsSharedContext(t *testing.T) {
	s := newStampede[int](stampedeKey{key: "k"}, true)

	if !s.tryAddCaller() {
		t.Fatal("join failed")
	}
	s.removeCaller()
	select {
	case <-s.ctx.Done():
		t.Fatal("context canceled while a caller remained")
	default:
	}

	s.removeCaller()
	select {
	case <-s.ctx.Done():
	default:
		t.Fatal("last leaver must cancel the shared context")
	}
	if s.ctx.Err() != context.Canceled {
		t.Fatalf("ctx.Err() = %v, want context.Canceled", s.ctx.Err())
	}
}

func TestStampedeNonCancelableNeverCancels(t *testing.T) {
	s := newStampede[int](stampedeKey{key: "k"}, false)

	s.removeCaller() // count hits zero
	if s.ctx.Err() != nil {
		t.Fatalf("non-cancelable group got canceled: %v", s.ctx.Err())
	}
	if s.cancel != nil {
		t.Fatal("non-cancelable group must not hold a cancel func")
	}
}

func TestStampedeCallerConservation(t *testing.T) {
	s := newStampede[int](stampedeKey{key: "k"}, true)

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if s.tryAddCaller() {
				s.removeCaller()
			}
		}()
	}
	wg.Wait()

	// only the creator's reference remains
	if got := s.debugCallerCount(); got != 1 {
		t.Fatalf("caller count = %d, want 1", got)
	}
	s.removeCaller()
	select {
	case <-s.ctx.Done():
	default:
		t.Fatal("group must be canceled once everyone left")
	}
}

func TestStampedeCallerOverflowPanics(t *testing.T) {
	s := newStampede[int](stampedeKey{key: "k"}, false)
	s.callers.Store(math.MaxInt64)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on caller count overflow")
		}
	}()
	s.tryAddCaller()
}

func TestStampedeWaitPublishedResult(t *testing.T) {
	s := newStampede[int](stampedeKey{key: "k"}, true)

	go func() {
		s.value, s.found, s.err = 42, true, nil
		close(s.done)
	}()

	v, found, err := s.wait(context.Background())
	if err != nil || !found || v != 42 {
		t.Fatalf("wait = (%d, %v, %v), want (42, true, nil)", v, found, err)
	}
}

func TestStampedeWaitCallerContextWins(t *testing.T) {
	s := newStampede[int](stampedeKey{key: "k"}, true)
	if !s.tryAddCaller() {
		t.Fatal("join failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.wait(ctx)
	if err != context.Canceled {
		t.Fatalf("wait err = %v, want context.Canceled", err)
	}
	// the leaving caller must have been removed from the count
	if got := s.debugCallerCount(); got != 1 {
		t.Fatalf("caller count = %d, want 1", got)
	}
}

func TestUnsharedStampedeUsesCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newUnsharedStampede[int](stampedeKey{key: "k"}, ctx)

	if s.tracked {
		t.Fatal("unshared flight must not be table-tracked")
	}
	cancel()
	select {
	case <-s.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("unshared flight must observe the caller's cancellation")
	}
}
