// Package compression provides the compression algorithms available to
// value codecs. Each compressed frame begins with a 1-byte algorithm tag so
// stored data stays readable when a table's configured algorithm changes.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a compression algorithm.
type Type uint8

const (
	// None stores the payload uncompressed.
	None Type = 0x0

	// Snappy uses Google Snappy block compression.
	Snappy Type = 0x1

	// LZ4 uses LZ4 frame compression.
	LZ4 Type = 0x2

	// Zstd uses Zstandard compression.
	Zstd Type = 0x3
)

// String returns the human-readable name of the compression type.
func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case Snappy:
		return "Snappy"
	case LZ4:
		return "LZ4"
	case Zstd:
		return "Zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// IsSupported returns true if the compression type is known.
func (t Type) IsSupported() bool {
	switch t {
	case None, Snappy, LZ4, Zstd:
		return true
	default:
		return false
	}
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
)

func zstdInit() {
	var err error
	zstdEnc, err = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		panic(fmt.Errorf("zstd encoder: %w", err))
	}
	zstdDec, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic(fmt.Errorf("zstd decoder: %w", err))
	}
}

// Compress compresses data using the specified algorithm.
func Compress(t Type, data []byte) ([]byte, error) {
	switch t {
	case None:
		return data, nil

	case Snappy:
		return snappy.Encode(nil, data), nil

	case LZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 close: %w", err)
		}
		return buf.Bytes(), nil

	case Zstd:
		zstdOnce.Do(zstdInit)
		return zstdEnc.EncodeAll(data, nil), nil

	default:
		return nil, fmt.Errorf("unsupported compression type: %s", t)
	}
}

// Decompress decompresses data using the specified algorithm.
func Decompress(t Type, data []byte) ([]byte, error) {
	switch t {
	case None:
		return data, nil

	case Snappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("snappy decode: %w", err)
		}
		return out, nil

	case LZ4:
		r := lz4.NewReader(bytes.NewReader(data))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("lz4 read: %w", err)
		}
		return out, nil

	case Zstd:
		zstdOnce.Do(zstdInit)
		out, err := zstdDec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported compression type: %s", t)
	}
}
