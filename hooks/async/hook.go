// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/herdcache"
//	"github.com/unkn0wn-root/herdcache/codec"
//	"github.com/unkn0wn-root/herdcache/hooks/async"
//	"github.com/unkn0wn-root/herdcache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery: 10, // sample logs: ~every 10th self-heal
//	    JoinEvery:     100,
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	cache, _ := herdcache.New[User](herdcache.Options[User]{
//	    Namespace: "app:prod:user",
//	    Backing:   backing,
//	    Codec:     codec.JSON[User]{},
//	    Hooks:     hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/herdcache"
)

type Hooks struct {
	inner herdcache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ herdcache.Hooks = (*Hooks)(nil)

func New(inner herdcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) StampedeCreated(k string) { h.try(func() { h.inner.StampedeCreated(k) }) }
func (h *Hooks) StampedeJoined(k string)  { h.try(func() { h.inner.StampedeJoined(k) }) }
func (h *Hooks) JoinRejected(k string)    { h.try(func() { h.inner.JoinRejected(k) }) }
func (h *Hooks) FetchError(k string, err error) {
	h.try(func() { h.inner.FetchError(k, err) })
}
func (h *Hooks) StoreError(op, k string, err error) {
	h.try(func() { h.inner.StoreError(op, k, err) })
}
func (h *Hooks) SelfHeal(k, r string) { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) PayloadTooLarge(k string, size, limit int64) {
	h.try(func() { h.inner.PayloadTooLarge(k, size, limit) })
}
func (h *Hooks) TagInvalidateError(tag string, err error) {
	h.try(func() { h.inner.TagInvalidateError(tag, err) })
}
