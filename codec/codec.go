// Package codec defines the serialization abstraction used by herdcache.
//
// Codecs MUST be deterministic and side-effect free: Decode(Encode(v)) yields
// an equal value, and decoding the same bytes twice yields equal results. The
// cache relies on this to materialize a typed value from a stored payload any
// number of times.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
