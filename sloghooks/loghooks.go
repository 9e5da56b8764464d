package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/herdcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	JoinEvery     uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	joinCtr     atomic.Uint64
}

var _ herdcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) StampedeCreated(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("herdcache.stampede_created",
		"key", h.redact(key))
}

func (h *Hooks) StampedeJoined(key string) {
	if h.l == nil || !sample(h.opts.JoinEvery, &h.joinCtr) {
		return
	}
	h.l.Debug("herdcache.stampede_joined",
		"key", h.redact(key))
}

func (h *Hooks) JoinRejected(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("herdcache.join_rejected",
		"key", h.redact(key))
}

func (h *Hooks) FetchError(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("herdcache.fetch_error",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) StoreError(op, storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("herdcache.store_error",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("herdcache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) PayloadTooLarge(storageKey string, size, limit int64) {
	if h.l == nil {
		return
	}
	h.l.Warn("herdcache.payload_too_large",
		"key", h.redact(storageKey),
		"size", size,
		"limit", limit)
}

func (h *Hooks) TagInvalidateError(tag string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("herdcache.tag_invalidate_error",
		"tag", tag,
		"err", err)
}
