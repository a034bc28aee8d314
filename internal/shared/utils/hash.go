package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256  HashAlgorithm = "sha256"
	BLAKE2b HashAlgorithm = "blake2b"
)

// Hasher provides extensible hashing functionality
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{
		algorithm: algorithm,
	}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(BLAKE2b)
}

// Algorithm returns the configured algorithm
func (h *Hasher) Algorithm() HashAlgorithm {
	return h.algorithm
}

// New returns a streaming hash for the configured algorithm
func (h *Hasher) New() hash.Hash {
	switch h.algorithm {
	case BLAKE2b:
		// New256 only fails for oversized keys
		d, _ := blake2b.New256(nil)
		return d
	default:
		return sha256.New()
	}
}

// Hash computes a hash of the input data
func (h *Hasher) Hash(data []byte) string {
	d := h.New()
	d.Write(data)
	return hex.EncodeToString(d.Sum(nil))
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashReader computes a hash of everything read from r
func (h *Hasher) HashReader(r io.Reader) (string, error) {
	d := h.New()
	if _, err := io.Copy(d, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}

// HashFields computes a hash from multiple fields
// Fields are concatenated with a delimiter for consistent hashing
func (h *Hasher) HashFields(fields ...string) string {
	// Sort fields for deterministic ordering
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)

	combined := strings.Join(sorted, "|")
	return h.HashString(combined)
}

// TreeDigest accumulates a deterministic digest over (name, content) pairs.
// Callers must add entries in a stable order.
type TreeDigest struct {
	d hash.Hash
}

// NewTreeDigest starts a tree digest
func (h *Hasher) NewTreeDigest() *TreeDigest {
	return &TreeDigest{d: h.New()}
}

// Add mixes one named entry into the digest
func (t *TreeDigest) Add(name string, content io.Reader) error {
	io.WriteString(t.d, name)
	t.d.Write([]byte{0})
	if _, err := io.Copy(t.d, content); err != nil {
		return err
	}
	t.d.Write([]byte{0})
	return nil
}

// Sum returns the hex digest
func (t *TreeDigest) Sum() string {
	return hex.EncodeToString(t.d.Sum(nil))
}

// ShortHash returns the first 8 characters of a hash for display
func ShortHash(fullHash string) string {
	if len(fullHash) < 8 {
		return fullHash
	}
	return fullHash[:8]
}
