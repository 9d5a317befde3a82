package codec

// Delegated lifts a type T through a wrapper type W that already has a
// codec, so near-identical shapes share one codec implementation instead of
// duplicating it. wrap and unwrap must be inverses; the wrapper exclusively
// owns the value while it exists, so plain by-value conversion suffices.
func Delegated[T, W any](wrap func(T) W, unwrap func(W) T, inner Codec[W]) Codec[T] {
	return delegated[T, W]{wrap: wrap, unwrap: unwrap, inner: inner}
}

type delegated[T, W any] struct {
	wrap   func(T) W
	unwrap func(W) T
	inner  Codec[W]
}

func (c delegated[T, W]) Encode(buf []byte, v T) []byte {
	return c.inner.Encode(buf, c.wrap(v))
}

func (c delegated[T, W]) Decode(data []byte) (T, error) {
	w, err := c.inner.Decode(data)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.unwrap(w), nil
}
