package codec

import "google.golang.org/protobuf/proto"

// Protobuf serializes generated proto messages. proto.Message is a pointer
// type, so decoding needs a way to allocate a fresh message; ctor provides it.
type Protobuf[T proto.Message] struct {
	ctor func() T
}

// NewProtobuf builds a codec for one concrete message type:
//
//	c := codec.NewProtobuf(func() *mypb.User { return &mypb.User{} })
func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{ctor: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.ctor()
	err := proto.Unmarshal(b, m)
	return m, err
}
