package codec

import (
	"encoding/binary"
	"fmt"
	"reflect"
)

// Key codecs must be order-preserving: the bytewise order of encodings must
// equal the natural order of keys, because cursors iterate in byte order.

type unsignedInt interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// BigEndian returns an order-preserving key codec for a fixed-size unsigned
// integer type, encoded big-endian at its natural width.
func BigEndian[T unsignedInt]() Codec[T] {
	var zero T
	return beCodec[T]{size: int(reflect.TypeOf(zero).Size())}
}

type beCodec[T unsignedInt] struct {
	size int
}

func (c beCodec[T]) Encode(buf []byte, v T) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[8-c.size:]...)
}

func (c beCodec[T]) Decode(data []byte) (T, error) {
	var v T
	if len(data) < c.size {
		return v, dataErrf(data, 0, ErrTruncated, "%T key requires %d bytes, got %d", v, c.size, len(data))
	}
	if len(data) > c.size {
		return v, dataErrf(data, 0, ErrMalformed, "%T key requires %d bytes, got %d", v, c.size, len(data))
	}
	var tmp [8]byte
	copy(tmp[8-c.size:], data)
	return T(binary.BigEndian.Uint64(tmp[:])), nil
}

// StringKey returns the key codec for strings: the raw bytes, which already
// sort lexicographically.
func StringKey() Codec[string] {
	return stringKey{}
}

type stringKey struct{}

func (stringKey) Encode(buf []byte, v string) []byte {
	return append(buf, v...)
}

func (stringKey) Decode(data []byte) (string, error) {
	return string(data), nil
}

// BytesKey returns the identity key codec for byte slices.
func BytesKey() Codec[[]byte] {
	return bytesKey{}
}

type bytesKey struct{}

func (bytesKey) Encode(buf []byte, v []byte) []byte {
	return append(buf, v...)
}

func (bytesKey) Decode(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// KeyOf picks a default order-preserving key codec for K based on its kind:
// fixed-size unsigned integers (including named types), strings and byte
// slices. Other kinds panic; declare those tables with an explicit key codec.
func KeyOf[K any]() Codec[K] {
	t := reflect.TypeOf((*K)(nil)).Elem()
	switch t.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return reflectUintKey[K]{t: t, size: int(t.Size())}
	case reflect.String:
		return reflectStringKey[K]{t: t}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return reflectBytesKey[K]{t: t}
		}
	}
	panic(fmt.Errorf("no default key codec for %v; declare the table with an explicit key codec", t))
}

// reflectUintKey handles named unsigned types (type ID uint64) that a
// compile-time type switch cannot reach.
type reflectUintKey[K any] struct {
	t    reflect.Type
	size int
}

func (c reflectUintKey[K]) Encode(buf []byte, v K) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], reflect.ValueOf(v).Uint())
	return append(buf, tmp[8-c.size:]...)
}

func (c reflectUintKey[K]) Decode(data []byte) (K, error) {
	var zero K
	if len(data) != c.size {
		kind := ErrMalformed
		if len(data) < c.size {
			kind = ErrTruncated
		}
		return zero, dataErrf(data, 0, kind, "%v key requires %d bytes, got %d", c.t, c.size, len(data))
	}
	var tmp [8]byte
	copy(tmp[8-c.size:], data)
	out := reflect.New(c.t).Elem()
	out.SetUint(binary.BigEndian.Uint64(tmp[:]))
	return out.Interface().(K), nil
}

type reflectStringKey[K any] struct {
	t reflect.Type
}

func (c reflectStringKey[K]) Encode(buf []byte, v K) []byte {
	return append(buf, reflect.ValueOf(v).String()...)
}

func (c reflectStringKey[K]) Decode(data []byte) (K, error) {
	out := reflect.New(c.t).Elem()
	out.SetString(string(data))
	return out.Interface().(K), nil
}

type reflectBytesKey[K any] struct {
	t reflect.Type
}

func (c reflectBytesKey[K]) Encode(buf []byte, v K) []byte {
	return append(buf, reflect.ValueOf(v).Bytes()...)
}

func (c reflectBytesKey[K]) Decode(data []byte) (K, error) {
	out := reflect.New(c.t).Elem()
	b := make([]byte, len(data))
	copy(b, data)
	out.SetBytes(b)
	return out.Interface().(K), nil
}
