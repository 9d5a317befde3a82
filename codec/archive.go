package codec

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Archive returns the zero-copy value codec for T. The encoding is the
// in-memory layout of T itself, so decoding reinterprets bytes instead of
// parsing field by field.
//
// T must have a fixed layout: only booleans, fixed-size integers, floats,
// complex numbers, and arrays/structs thereof, with no padding. Layout is
// validated once here and violations panic, since they are programming
// errors, not data errors.
//
// The bytes are only meaningful to the build that produced them (native
// endianness, this type's exact layout). Decoding bytes from outside this
// system is unsafe; use Portable wherever bytes cross a trust boundary.
func Archive[T any]() Codec[T] {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if err := checkFixedLayout(t); err != nil {
		panic(fmt.Errorf("codec.Archive[%v]: %w", t, err))
	}
	return archive[T]{size: int(t.Size())}
}

type archive[T any] struct {
	size int
}

func (c archive[T]) Encode(buf []byte, v T) []byte {
	return append(buf, unsafe.Slice((*byte)(unsafe.Pointer(&v)), c.size)...)
}

func (c archive[T]) Decode(data []byte) (T, error) {
	var v T
	if len(data) < c.size {
		return v, dataErrf(data, 0, ErrTruncated, "archived %T requires %d bytes, got %d", v, c.size, len(data))
	}
	if len(data) > c.size {
		return v, dataErrf(data, 0, ErrMalformed, "archived %T requires %d bytes, got %d", v, c.size, len(data))
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), c.size), data)
	return v, nil
}

// View reinterprets data as a *T without copying. The returned pointer
// aliases data: it is valid only while data is, and must be treated as
// read-only if data is (e.g. engine-owned pages). data must originate from
// Archive[T]().Encode — this is the trusted-bytes contract; View performs
// size and alignment checks but cannot validate content.
func View[T any](data []byte) (*T, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if err := checkFixedLayout(t); err != nil {
		panic(fmt.Errorf("codec.View[%v]: %w", t, err))
	}
	size := int(t.Size())
	if len(data) < size {
		return nil, dataErrf(data, 0, ErrTruncated, "archived %v requires %d bytes, got %d", t, size, len(data))
	}
	if len(data) > size {
		return nil, dataErrf(data, 0, ErrMalformed, "archived %v requires %d bytes, got %d", t, size, len(data))
	}
	p := unsafe.Pointer(unsafe.SliceData(data))
	if uintptr(p)%uintptr(t.Align()) != 0 {
		return nil, dataErrf(data, 0, ErrMalformed, "archived %v requires %d-byte alignment", t, t.Align())
	}
	return (*T)(p), nil
}

// checkFixedLayout rejects types whose byte image is not a self-contained,
// deterministic encoding of their value.
func checkFixedLayout(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Int, reflect.Uint, reflect.Uintptr:
		return fmt.Errorf("%v has a platform-dependent size; use a fixed-size integer", t)
	case reflect.Array:
		return checkFixedLayout(t.Elem())
	case reflect.Struct:
		var off uintptr
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Offset != off {
				return fmt.Errorf("%v has padding before field %s; reorder or pad explicitly", t, f.Name)
			}
			if err := checkFixedLayout(f.Type); err != nil {
				return err
			}
			off += f.Type.Size()
		}
		if off != t.Size() {
			return fmt.Errorf("%v has trailing padding; reorder or pad explicitly", t)
		}
		return nil
	default:
		return fmt.Errorf("%v is not fixed-layout (kind %v)", t, t.Kind())
	}
}
