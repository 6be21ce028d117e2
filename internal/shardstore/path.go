package shardstore

import (
	"encoding/hex"
	"fmt"

	digest "github.com/opencontainers/go-digest"
)

const hexAlphabet = "0123456789abcdef"

// Segments splits a content digest into the three path segments used to
// shelve it on disk: two 14-bit shard prefixes followed by the remainder.
//
// With the raw digest bytes b0 b1 ... b31:
//   - s1 = bits 7..6 of b0, high nibble of b1, then b2 (4 hex chars)
//   - s2 = bits 5..4 of b0, low nibble of b1, then b3 (4 hex chars)
//   - s3 = low nibble of b0, then b4..b31 (1 + 56 = 57 hex chars)
//
// The split keeps each of the first two directory levels at 16384 entries
// (14 bits), which is the fanout the cache is tuned for; see the package
// doc for the fan-out rationale.
func Segments(h digest.Digest) (s1, s2, s3 string, err error) {
	if h.Algorithm() != digest.SHA256 {
		return "", "", "", fmt.Errorf("shardstore: unsupported digest algorithm %q", h.Algorithm())
	}
	raw, err := hex.DecodeString(h.Encoded())
	if err != nil {
		return "", "", "", fmt.Errorf("shardstore: malformed digest %q: %w", h, err)
	}
	if len(raw) != 32 {
		return "", "", "", fmt.Errorf("shardstore: digest %q is %d bytes, want 32", h, len(raw))
	}

	b, c := raw[0], raw[1]
	b1 := (b & 0b11000000) >> 6
	b2 := (b & 0b00110000) >> 4
	b3 := b & 0b00001111
	c1 := (c & 0b11110000) >> 4
	c2 := c & 0b00001111

	s1 = string(hexAlphabet[b1]) + string(hexAlphabet[c1]) + hex.EncodeToString(raw[2:3])
	s2 = string(hexAlphabet[b2]) + string(hexAlphabet[c2]) + hex.EncodeToString(raw[3:4])
	s3 = string(hexAlphabet[b3]) + hex.EncodeToString(raw[4:])
	return s1, s2, s3, nil
}
