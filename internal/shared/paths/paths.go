// Package paths provides the canonical names used inside archives and cache
// roots. The archive assembler and the bootstrap must agree on every name
// defined here.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Archive record names
const (
	// PayloadPrefix is the directory inside the archive holding the dependency payload
	PayloadPrefix = "site-packages/"

	// ManifestJSON is the preferred manifest record
	ManifestJSON = "environment.json"

	// ManifestTOML is the TOML manifest record
	ManifestTOML = "environment.toml"

	// ManifestYAML is the YAML manifest record
	ManifestYAML = "environment.yaml"
)

// Cache layout
const (
	// CompleteMarker marks a fully extracted cache directory
	CompleteMarker = ".complete"

	// StagingInfix separates a cache name from the random suffix of its staging directory
	StagingInfix = ".tmp-"

	// EphemeralInfix separates a cache name from the random suffix of a run-scoped directory
	EphemeralInfix = ".run-"

	// RetiredInfix names a directory moved aside by a forced re-extraction
	RetiredInfix = ".old-"

	// SiteDirName is the conventional base name of a site directory
	SiteDirName = "site-packages"

	// RootDirName is the default cache root directory name under the home directory
	RootDirName = ".satchel"
)

// ManifestRecords returns manifest record names in lookup order
func ManifestRecords() []string {
	return []string{ManifestJSON, ManifestTOML, ManifestYAML}
}

// CacheName returns the cache directory name for an archive and build identity
func CacheName(archivePath, buildID string) string {
	return fmt.Sprintf("%s_%s", filepath.Base(archivePath), buildID)
}

// CacheDir returns the cache directory for an archive under root
func CacheDir(root, archivePath, buildID string) string {
	return filepath.Join(root, CacheName(archivePath, buildID))
}

// MarkerPath returns the completion marker inside a cache directory
func MarkerPath(dir string) string {
	return filepath.Join(dir, CompleteMarker)
}

// IsCacheDir reports whether dir is a finished satchel cache directory: a
// {archive}_{build} name holding the completion marker
func IsCacheDir(dir string) bool {
	if !strings.Contains(filepath.Base(filepath.Clean(dir)), "_") {
		return false
	}
	info, err := os.Stat(MarkerPath(dir))
	return err == nil && info.Mode().IsRegular()
}

// DefaultRoot returns the default cache root: ~/.satchel, or a directory under
// the system temp dir when no home directory is available.
func DefaultRoot() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, RootDirName)
	}
	return filepath.Join(os.TempDir(), "satchel")
}

// IsStagingName reports whether name is a staging sibling of cacheName.
// Run-scoped and retired siblings are not staging directories.
func IsStagingName(cacheName, name string) bool {
	return strings.HasPrefix(name, cacheName+StagingInfix)
}

// IsRetiredName reports whether name is a sibling of cacheName moved aside by
// a forced re-extraction
func IsRetiredName(cacheName, name string) bool {
	return strings.HasPrefix(name, cacheName+RetiredInfix)
}

// PayloadRelative strips the payload prefix from an archive record name.
// ok is false for records outside the payload and for the prefix itself.
func PayloadRelative(name string) (rel string, ok bool) {
	if !strings.HasPrefix(name, PayloadPrefix) {
		return "", false
	}
	rel = strings.TrimPrefix(name, PayloadPrefix)
	if rel == "" {
		return "", false
	}
	return rel, true
}
