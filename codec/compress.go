package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/jnoorchashm37/tablekv/internal/checksum"
	"github.com/jnoorchashm37/tablekv/internal/compression"
)

// Compression selects the algorithm used by Compressed codecs.
type Compression uint8

const (
	NoCompression Compression = Compression(compression.None)
	Snappy        Compression = Compression(compression.Snappy)
	LZ4           Compression = Compression(compression.LZ4)
	Zstd          Compression = Compression(compression.Zstd)
)

// Frame layout: 1-byte algorithm tag, 8-byte big-endian xxh3 checksum of the
// compressed payload, payload.
const frameHeaderSize = 1 + 8

// Compressed wraps inner with compression. Compression is applied after
// encoding and undone before decoding, independently of which strategy
// produced the uncompressed bytes. Decoding verifies the frame checksum and
// fails with ErrCompressionCorrupt before the payload ever reaches inner.
func Compressed[T any](inner Codec[T], algo Compression) Codec[T] {
	ct := compression.Type(algo)
	if !ct.IsSupported() {
		panic(fmt.Errorf("codec.Compressed: unsupported compression %d", algo))
	}
	return compressed[T]{inner: inner, algo: ct}
}

type compressed[T any] struct {
	inner Codec[T]
	algo  compression.Type
}

func (c compressed[T]) Encode(buf []byte, v T) []byte {
	raw := c.inner.Encode(nil, v)
	payload, err := compression.Compress(c.algo, raw)
	if err != nil {
		// Compression of in-memory bytes never fails for supported
		// algorithms; this is an invariant violation, not a data error.
		panic(fmt.Errorf("failed to compress %T value: %w", v, err))
	}
	off, buf := grow(buf, frameHeaderSize)
	buf[off] = byte(c.algo)
	binary.BigEndian.PutUint64(buf[off+1:], checksum.Sum64(payload))
	return appendRaw(buf, payload)
}

func (c compressed[T]) Decode(data []byte) (T, error) {
	var zero T
	if len(data) < frameHeaderSize {
		return zero, dataErrf(data, 0, ErrTruncated, "compressed frame requires at least %d bytes", frameHeaderSize)
	}
	algo := compression.Type(data[0])
	if !algo.IsSupported() {
		return zero, dataErrf(data, 0, ErrMalformed, "unknown compression tag %d", data[0])
	}
	want := binary.BigEndian.Uint64(data[1:9])
	payload := data[frameHeaderSize:]
	if !checksum.Verify(payload, want) {
		return zero, dataErrf(data, frameHeaderSize, ErrCompressionCorrupt, "checksum mismatch in %s frame", algo)
	}
	raw, err := compression.Decompress(algo, payload)
	if err != nil {
		return zero, dataErrf(data, frameHeaderSize, ErrCompressionCorrupt, "%v", err)
	}
	return c.inner.Decode(raw)
}
