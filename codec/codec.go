// Package codec converts typed keys and values to and from storage bytes.
//
// Two value strategies are provided: Portable, a self-describing msgpack
// encoding safe across versions and trust boundaries, and Archive, a
// zero-copy fixed-layout encoding that reinterprets bytes directly and must
// only be fed bytes produced by this package. Compressed wraps either one.
// Key codecs are order-preserving so that engine iteration order matches the
// natural key order.
package codec

import (
	"errors"
	"fmt"
)

// Codec encodes and decodes one type.
//
// Encode appends the encoding of v to buf and returns the extended buffer.
// It is total: it never fails for well-formed in-memory values, and panics
// on programming errors (an unencodable type reaching a codec).
//
// Decode fails for truncated, malformed or incompatible input. Decode of an
// Encode result always round-trips to an equal value.
type Codec[T any] interface {
	Encode(buf []byte, v T) []byte
	Decode(data []byte) (T, error)
}

// ErrTruncated reports input shorter than the encoding requires.
var ErrTruncated = errors.New("truncated data")

// ErrMalformed reports input that does not parse as this codec's encoding.
var ErrMalformed = errors.New("malformed data")

// ErrCompressionCorrupt reports a compressed frame that fails its checksum
// or does not decompress.
var ErrCompressionCorrupt = errors.New("corrupt compressed data")

// DataError decorates a decode failure with a bounded excerpt of the
// offending bytes.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		}
		return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
	}
	p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
	}
	return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
}
