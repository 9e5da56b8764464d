package herdcache

import "github.com/unkn0wn-root/herdcache/codec"

// SizeUnknown is reported by Item.Bytes when no serialized form exists.
const SizeUnknown = -1

// Item is an immutable cache value in one of two forms: a typed in-memory
// value, or the codec-serialized payload as read from a byte store. Exactly
// one form is authoritative per instance. Conversions are explicit: Value
// materializes bytes through the codec, and a typed-only item is never
// serialized implicitly (that is the cache's job at write time).
type Item[V any] struct {
	value V
	raw   []byte
	typed bool
	dec   codec.Codec[V]
}

// NewValueItem wraps an already-computed value.
func NewValueItem[V any](v V) Item[V] {
	return Item[V]{value: v, typed: true}
}

// NewBytesItem wraps a serialized payload; dec is used to materialize it.
func NewBytesItem[V any](raw []byte, dec codec.Codec[V]) Item[V] {
	return Item[V]{raw: raw, dec: dec}
}

// Value returns the typed value, decoding the payload when only the byte
// form is held. Decoding is a pure function of the bytes: repeated calls
// yield equal results.
func (it Item[V]) Value() (V, error) {
	if it.typed {
		return it.value, nil
	}
	return it.dec.Decode(it.raw)
}

// Bytes returns the serialized payload and its length, or (nil, SizeUnknown)
// for typed-only items.
func (it Item[V]) Bytes() ([]byte, int) {
	if it.typed {
		return nil, SizeUnknown
	}
	return it.raw, len(it.raw)
}
