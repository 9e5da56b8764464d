package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack serializes values with vmihailenco/msgpack/v5. The zero value is
// ready to use.
//
// Field naming follows `msgpack:"..."` struct tags, which do not fall back
// to `json:"..."` tags; tag both when a type moves between codecs.
type Msgpack[V any] struct{}

func (Msgpack[V]) Encode(v V) ([]byte, error) {
	return msgpack.Marshal(v)
}
func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}
