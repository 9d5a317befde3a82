package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Portable returns the portable value codec for T: msgpack, a
// self-describing, length-prefixed, recursive encoding that handles
// primitive numerics, byte strings and nested composite types uniformly.
// Use it whenever the bytes may cross a version or trust boundary.
func Portable[T any]() Codec[T] {
	return portable[T]{}
}

type portable[T any] struct{}

func (portable[T]) Encode(buf []byte, v T) []byte {
	bb := bytesBuilder{buf}
	enc := msgpack.GetEncoder()
	enc.Reset(&bb)
	enc.SetSortMapKeys(true)
	err := enc.Encode(&v)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("failed to encode %T using msgpack: %w", v, err))
	}
	return bb.Buf
}

func (portable[T]) Decode(data []byte) (T, error) {
	var v T
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	err := dec.Decode(&v)
	msgpack.PutDecoder(dec)
	if err != nil {
		kind := ErrMalformed
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			kind = ErrTruncated
		}
		return v, dataErrf(data, 0, kind, "failed to decode msgpack into %T: %v", v, err)
	}
	return v, nil
}
