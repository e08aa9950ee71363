// Package hash provides content digests for value-equality checks.
//
// Digests are what the synchronization core compares and keys windows
// on, so the full content never has to be retained just to answer "is
// this the same value I saw before".
package hash

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Algorithm selects the digest function.
type Algorithm string

const (
	BLAKE2b256 Algorithm = "blake2b-256"
	// Extensible: add more algorithms here
)

// Size is the digest length in bytes.
const Size = blake2b.Size256

// Digest is a fixed-size content digest. The zero value means "no
// content observed". Digests are comparable and usable as map keys.
type Digest [Size]byte

// String returns the full hex encoding.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 8 hex characters, for log fields.
func (d Digest) Short() string {
	return d.String()[:8]
}

// IsZero reports whether no content has been digested.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Hasher computes digests with a configured algorithm.
type Hasher struct {
	algorithm Algorithm
}

// New creates a hasher for the given algorithm.
func New(algorithm Algorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// Default returns a hasher with the default algorithm.
func Default() *Hasher {
	return New(BLAKE2b256)
}

// Sum computes the digest of data.
func (h *Hasher) Sum(data []byte) Digest {
	switch h.algorithm {
	case BLAKE2b256:
		return blake2b.Sum256(data)
	default:
		return blake2b.Sum256(data)
	}
}

// SumString computes the digest of s.
func (h *Hasher) SumString(s string) Digest {
	return h.Sum([]byte(s))
}

// Content digests a content string with the default algorithm.
func Content(s string) Digest {
	return Default().SumString(s)
}
