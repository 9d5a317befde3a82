// Package checksum computes the integrity checksums used by compressed
// value frames.
package checksum

import "github.com/zeebo/xxh3"

// Sum64 returns the xxh3 64-bit hash of data.
func Sum64(data []byte) uint64 {
	return xxh3.Hash(data)
}

// Verify reports whether data hashes to want.
func Verify(data []byte, want uint64) bool {
	return xxh3.Hash(data) == want
}
