package codec

import (
	"errors"
	"strings"
	"testing"
)

func TestCompressedRoundTrip(t *testing.T) {
	v := portableValue{
		Name:   strings.Repeat("compressible ", 50),
		Score:  3.14,
		Labels: []string{"a", "a", "a", "a"},
	}
	for _, algo := range []Compression{NoCompression, Snappy, LZ4, Zstd} {
		c := Compressed(Portable[portableValue](), algo)
		data := c.Encode(nil, v)
		deepEqual(t, must(c.Decode(data)), v)
	}
}

func TestCompressedWrapsArchive(t *testing.T) {
	c := Compressed(Archive[archPoint](), Zstd)
	v := archPoint{X: 7, Y: 9}
	deepEqual(t, must(c.Decode(c.Encode(nil, v))), v)
}

func TestCompressedChecksumDetectsCorruption(t *testing.T) {
	c := Compressed(Portable[portableValue](), Zstd)
	data := c.Encode(nil, portableValue{Name: strings.Repeat("x", 200)})

	flipped := append([]byte(nil), data...)
	flipped[len(flipped)-1] ^= 0xFF
	if _, err := c.Decode(flipped); !errors.Is(err, ErrCompressionCorrupt) {
		t.Errorf("Decode of corrupted payload = %v, wanted ErrCompressionCorrupt", err)
	}

	flipped = append([]byte(nil), data...)
	flipped[3] ^= 0xFF // inside the stored checksum
	if _, err := c.Decode(flipped); !errors.Is(err, ErrCompressionCorrupt) {
		t.Errorf("Decode with corrupted checksum = %v, wanted ErrCompressionCorrupt", err)
	}
}

func TestCompressedFrameErrors(t *testing.T) {
	c := Compressed(Portable[portableValue](), Snappy)
	data := c.Encode(nil, portableValue{Name: "frame"})

	if _, err := c.Decode(data[:5]); !errors.Is(err, ErrTruncated) {
		t.Errorf("Decode of a cut frame = %v, wanted ErrTruncated", err)
	}

	badTag := append([]byte(nil), data...)
	badTag[0] = 99
	if _, err := c.Decode(badTag); !errors.Is(err, ErrMalformed) {
		t.Errorf("Decode with an unknown algorithm tag = %v, wanted ErrMalformed", err)
	}
}

func TestCompressedUnsupportedAlgoPanics(t *testing.T) {
	expectPanic(t, "Compressed with tag 99", func() {
		Compressed(Portable[uint64](), Compression(99))
	})
}
