// Package id provides build identities for archives.
//
// A build identity names one payload snapshot. It is embedded in the archive
// manifest at assembly time and becomes part of the cache directory name, so
// it must be a single, portable path component.
//
// Two kinds of identity are produced:
//   - Random: a UUID, unique per assembly (the default)
//   - Content: a hash of the payload, stable across rebuilds of identical input
package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// BuildID identifies one payload snapshot
type BuildID string

// ============================================================================
// Generation
// ============================================================================

// NewBuildID generates a random build identity
func NewBuildID() BuildID {
	return BuildID(uuid.New().String())
}

// ContentBuildID derives a build identity from a payload digest. The digest
// is expected to be hex encoded; it is truncated to keep cache paths short.
func ContentBuildID(digest string) BuildID {
	const maxLen = 32
	if len(digest) > maxLen {
		digest = digest[:maxLen]
	}
	return BuildID(digest)
}

// ============================================================================
// Validation
// ============================================================================

// String returns the identity as a string
func (b BuildID) String() string { return string(b) }

// Validate checks that the identity is usable as a path component
func (b BuildID) Validate() error {
	s := string(b)
	if s == "" {
		return fmt.Errorf("build id cannot be empty")
	}
	if s == "." || s == ".." {
		return fmt.Errorf("build id %q is not a valid path component", s)
	}
	if strings.ContainsAny(s, `/\:`) || strings.ContainsRune(s, 0) {
		return fmt.Errorf("build id %q contains path separators", s)
	}
	return nil
}

// IsUUID reports whether the identity is a random (UUID) identity. Only the
// canonical hyphenated form counts; uuid.Parse also accepts 32 bare hex
// digits, which is what a content identity looks like.
func (b BuildID) IsUUID() bool {
	s := string(b)
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
