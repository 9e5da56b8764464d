package herdcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	cd "github.com/unkn0wn-root/herdcache/codec"
	"github.com/unkn0wn-root/herdcache/internal/util"
	"github.com/unkn0wn-root/herdcache/internal/wire"
	st "github.com/unkn0wn-root/herdcache/store"
	ts "github.com/unkn0wn-root/herdcache/tagstore"
)

const (
	defaultTTL          = 10 * time.Minute
	defaultSweep        = time.Hour
	defaultTagRetention = 30 * 24 * time.Hour
	defaultMaxPayload   = 1 << 20 // 1MiB
)

type cache[V any] struct {
	ns      string
	local   st.Store
	backing st.Store
	codec   cd.Codec[V]
	dec     cd.Codec[V] // decode side, wrapped with the payload limit
	tags    ts.Store
	log     Logger
	hooks   Hooks

	enabled bool

	defaultTTL time.Duration
	localTTL   time.Duration
	maxPayload int64

	// stampede table: stampedeKey -> *stampedeState[V].
	// All per-key lifecycle goes through LoadOrStore / CompareAndSwap /
	// CompareAndDelete; the table itself is never locked as a whole.
	flights sync.Map
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Codec == nil {
		return nil, fmt.Errorf("herdcache: codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("herdcache: namespace is required")
	}

	c := &cache[V]{
		ns:      opts.Namespace,
		local:   opts.Local,
		backing: opts.Backing,
		codec:   opts.Codec,
		enabled: !opts.Disabled,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.defaultTTL = coalesce[time.Duration](opts.DefaultTTL, defaultTTL)
	c.localTTL = coalesce[time.Duration](opts.LocalTTL, c.defaultTTL)

	switch {
	case opts.MaxPayloadBytes < 0:
		c.maxPayload = 0 // unlimited
	case opts.MaxPayloadBytes == 0:
		c.maxPayload = defaultMaxPayload
	default:
		c.maxPayload = opts.MaxPayloadBytes
	}
	c.dec = cd.Limit[V]{Inner: opts.Codec, MaxDecode: int(c.maxPayload)}

	if opts.TagStore != nil {
		c.tags = opts.TagStore
	} else {
		sweep := coalesce[time.Duration](opts.CleanupInterval, defaultSweep)
		retention := coalesce[time.Duration](opts.TagRetention, defaultTagRetention)
		c.tags = ts.NewLocal(sweep, retention)
	}

	return c, nil
}

func (c *cache[V]) Enabled() bool { return c.enabled }

func (c *cache[V]) Close(ctx context.Context) error {
	// tag store first (best effort), then stores
	if c.tags != nil {
		_ = c.tags.Close(ctx)
	}
	var err error
	if c.local != nil {
		err = c.local.Close(ctx)
	}
	if c.backing != nil {
		if berr := c.backing.Close(ctx); err == nil {
			err = berr
		}
	}
	return err
}

func (c *cache[V]) InFlight() int {
	n := 0
	c.flights.Range(func(any, any) bool { n++; return true })
	return n
}

func (c *cache[V]) GetOrCreate(ctx context.Context, key string, fetch Fetcher[V], opts ...EntryOption) (V, error) {
	var zero V
	if fetch == nil {
		return zero, fmt.Errorf("herdcache: nil fetcher for %q", key)
	}
	if !c.enabled {
		// disabled cache degrades to a plain call
		return fetch(ctx)
	}

	eo := c.resolveEntry(opts)
	sk := c.entryKey(key)
	if eo.flags&flagSkipLocal == 0 {
		if v, ok := c.readStore(ctx, c.local, sk); ok {
			return v, nil
		}
	}

	if eo.noCoalesce {
		s := newUnsharedStampede[V](stampedeKey{key: key, flags: eo.flags}, ctx)
		go c.run(s, sk, fetch, eo)
		v, _, err := s.wait(ctx)
		return v, err
	}

	s, created := c.join(stampedeKey{key: key, flags: eo.flags}, ctx)
	if created {
		c.hooks.StampedeCreated(key)
		go c.run(s, sk, fetch, eo)
	} else {
		c.hooks.StampedeJoined(key)
	}
	v, _, err := s.wait(ctx)
	return v, err
}

func (c *cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if !c.enabled {
		return zero, false, nil
	}

	eo := c.resolveEntry(nil)
	eo.flags |= flagProbe
	sk := c.entryKey(key)
	if v, ok := c.readStore(ctx, c.local, sk); ok {
		return v, true, nil
	}
	if c.backing == nil {
		return zero, false, nil
	}

	// collapse concurrent probes into a single backing read
	s, created := c.join(stampedeKey{key: key, flags: eo.flags}, ctx)
	if created {
		c.hooks.StampedeCreated(key)
		go c.run(s, sk, nil, eo)
	} else {
		c.hooks.StampedeJoined(key)
	}
	return s.wait(ctx)
}

func (c *cache[V]) Set(ctx context.Context, key string, value V, opts ...EntryOption) error {
	if !c.enabled {
		return nil
	}
	eo := c.resolveEntry(opts)
	return c.persist(ctx, key, c.entryKey(key), value, eo)
}

func (c *cache[V]) Remove(ctx context.Context, key string) error {
	if !c.enabled {
		return nil
	}
	sk := c.entryKey(key)
	var localErr, backingErr error
	if c.local != nil {
		localErr = c.local.Del(ctx, sk)
	}
	if c.backing != nil {
		backingErr = c.backing.Del(ctx, sk)
	}
	if localErr != nil || backingErr != nil {
		return &RemoveError{Key: key, LocalErr: localErr, BackingErr: backingErr}
	}
	return nil
}

func (c *cache[V]) RemoveByTag(ctx context.Context, tag string) error {
	if !c.enabled {
		return nil
	}
	stamp, err := c.tags.Invalidate(ctx, tag)
	if err != nil {
		c.hooks.TagInvalidateError(tag, err)
		return err
	}
	c.log.Debug("invalidated tag", Fields{"tag": tag, "stamp": stamp})
	return nil
}

// join returns the live flight for k, attaching the caller to an existing one
// when possible. Exactly one caller wins creation; a burned (count==0) entry
// is replaced via CompareAndSwap so two racers can never both install a fresh
// state for the same key.
func (c *cache[V]) join(k stampedeKey, ctx context.Context) (*stampedeState[V], bool) {
	cancelable := ctx.Done() != nil
	for {
		if cur, ok := c.flights.Load(k); ok {
			s := cur.(*stampedeState[V])
			if s.tryAddCaller() {
				return s, false
			}
			// burned: finished or tearing down, must not accept joiners
			c.hooks.JoinRejected(k.key)
			fresh := newStampede[V](k, cancelable)
			if c.flights.CompareAndSwap(k, cur, fresh) {
				return fresh, true
			}
			fresh.discard()
			continue
		}
		fresh := newStampede[V](k, cancelable)
		cur, loaded := c.flights.LoadOrStore(k, fresh)
		if !loaded {
			return fresh, true
		}
		s := cur.(*stampedeState[V])
		if s.tryAddCaller() {
			fresh.discard()
			return s, false
		}
		c.hooks.JoinRejected(k.key)
		if c.flights.CompareAndSwap(k, cur, fresh) {
			return fresh, true
		}
		fresh.discard()
	}
}

// run is the single execution of a flight. It publishes the outcome to all
// joined callers and only then removes the table entry, so a not-yet-finished
// flight can never coexist with a fresh one for the same key. The conditional
// delete protects a replacement entry installed after this flight burned.
func (c *cache[V]) run(s *stampedeState[V], sk string, fetch Fetcher[V], eo entryOptions) {
	v, found, err := c.fill(s.ctx, s.key.key, sk, fetch, eo)
	s.value, s.found, s.err = v, found, err
	close(s.done)
	if s.tracked {
		c.flights.CompareAndDelete(s.key, s)
	}
}

// fill is the body of one flight: backing store first, then the fetch
// delegate. Store failures are reported but never surface to callers; only
// the fetch error propagates.
func (c *cache[V]) fill(ctx context.Context, key, sk string, fetch Fetcher[V], eo entryOptions) (V, bool, error) {
	var zero V
	if eo.flags&flagSkipBacking == 0 && c.backing != nil {
		if frame, e, ok := c.readEntry(ctx, c.backing, sk); ok {
			item := NewBytesItem(e.Payload, c.dec)
			v, err := item.Value()
			if err == nil {
				if eo.flags&flagSkipLocal == 0 {
					c.warmLocal(ctx, sk, frame, eo)
				}
				return v, true, nil
			}
			c.selfHeal(ctx, c.backing, sk, "value_decode")
		}
	}

	if eo.flags&flagProbe != 0 {
		// probe has no fetch delegate; backing miss is the answer
		return zero, false, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		c.hooks.FetchError(key, err)
		return zero, false, err
	}
	if perr := c.persist(ctx, key, sk, v, eo); perr != nil {
		// value is still good; caching it just failed
		c.log.Warn("fill: caching computed value failed", Fields{"key": key, "err": perr})
	}
	return v, true, nil
}

// readStore reads and validates an entry from one store and decodes the value.
func (c *cache[V]) readStore(ctx context.Context, s st.Store, sk string) (V, bool) {
	var zero V
	if s == nil {
		return zero, false
	}
	_, e, ok := c.readEntry(ctx, s, sk)
	if !ok {
		return zero, false
	}
	v, err := NewBytesItem(e.Payload, c.dec).Value()
	if err != nil {
		c.selfHeal(ctx, s, sk, "value_decode")
		return zero, false
	}
	return v, true
}

// readEntry fetches a raw frame, rejecting corrupt or tag-stale entries.
// Both are deleted on sight (self-heal) and reported as a miss.
func (c *cache[V]) readEntry(ctx context.Context, s st.Store, sk string) ([]byte, wire.Entry, bool) {
	raw, ok, err := s.Get(ctx, sk)
	if err != nil {
		c.hooks.StoreError("get", sk, err)
		c.log.Warn("store get error", Fields{"key": sk, "err": err})
		return nil, wire.Entry{}, false
	}
	if !ok {
		return nil, wire.Entry{}, false
	}
	e, err := wire.Decode(raw)
	if err != nil {
		c.selfHeal(ctx, s, sk, "corrupt")
		return nil, wire.Entry{}, false
	}
	fresh, err := c.entryFresh(ctx, e)
	if err != nil {
		// can't prove freshness; serve a miss but keep the entry
		c.hooks.StoreError("tag_snapshot", sk, err)
		return nil, wire.Entry{}, false
	}
	if !fresh {
		c.selfHeal(ctx, s, sk, "tag_stale")
		return nil, wire.Entry{}, false
	}
	return raw, e, true
}

// entryFresh reports whether the entry postdates the newest invalidation
// stamp of every tag it carries.
func (c *cache[V]) entryFresh(ctx context.Context, e wire.Entry) (bool, error) {
	if len(e.Tags) == 0 {
		return true, nil
	}
	stamps, err := c.tags.SnapshotMany(ctx, e.Tags)
	if err != nil {
		return false, err
	}
	for _, t := range e.Tags {
		if e.Created <= stamps[t] {
			return false, nil
		}
	}
	return true, nil
}

func (c *cache[V]) selfHeal(ctx context.Context, s st.Store, sk, reason string) {
	_ = s.Del(ctx, sk)
	c.hooks.SelfHeal(sk, reason)
}

// persist frames the value and writes it to the enabled stores. The frame
// size limit is enforced before any write; oversized values are not cached.
func (c *cache[V]) persist(ctx context.Context, key, sk string, value V, eo entryOptions) error {
	payload, err := c.codec.Encode(value)
	if err != nil {
		return err
	}
	frame, err := wire.Encode(wire.Entry{
		Created: time.Now().UnixNano(),
		Tags:    eo.tags,
		Payload: payload,
	})
	if err != nil {
		return err
	}
	if c.maxPayload > 0 && int64(len(frame)) > c.maxPayload {
		c.hooks.PayloadTooLarge(sk, int64(len(frame)), c.maxPayload)
		return &PayloadTooLargeError{Key: key, Size: int64(len(frame)), Limit: c.maxPayload}
	}

	var firstErr error
	if c.local != nil && eo.flags&flagSkipLocal == 0 {
		ok, err := c.local.Set(ctx, sk, frame, int64(len(frame)), eo.localTTL)
		if err != nil {
			c.hooks.StoreError("set", sk, err)
			firstErr = err
		} else if !ok {
			c.log.Debug("local set rejected (pressure)", Fields{"key": key})
		}
	}
	if c.backing != nil && eo.flags&flagSkipBacking == 0 {
		ok, err := c.backing.Set(ctx, sk, frame, int64(len(frame)), eo.ttl)
		if err != nil {
			c.hooks.StoreError("set", sk, err)
			if firstErr == nil {
				firstErr = err
			}
		} else if !ok {
			c.log.Debug("backing set rejected (pressure)", Fields{"key": key})
		}
	}
	return firstErr
}

// warmLocal seeds the local store with the frame already read from backing.
func (c *cache[V]) warmLocal(ctx context.Context, sk string, frame []byte, eo entryOptions) {
	if c.local == nil {
		return
	}
	if _, err := c.local.Set(ctx, sk, frame, int64(len(frame)), eo.localTTL); err != nil {
		c.hooks.StoreError("set", sk, err)
	}
}

func (c *cache[V]) entryKey(userKey string) string {
	return util.EntryKey(c.ns, userKey)
}
