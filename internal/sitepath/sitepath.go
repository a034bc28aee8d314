package sitepath

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/GriffinCanCode/satchel/internal/shared/paths"
)

// EnvVar holds the search path as an os.PathListSeparator separated list
const EnvVar = "SATCHEL_PATH"

// IsSiteDir reports whether entry names a site directory, either by its
// conventional base name or because it is another archive's cache directory
func IsSiteDir(entry string) bool {
	switch filepath.Base(filepath.Clean(entry)) {
	case paths.SiteDirName, "dist-packages":
		return true
	}
	return paths.IsCacheDir(entry)
}

// SearchPath is an ordered, concurrency-safe list of directories
type SearchPath struct {
	mu      sync.RWMutex
	entries []string
	isSite  func(string) bool
}

// Option configures a SearchPath
type Option func(*SearchPath)

// WithSiteDirs replaces the site directory predicate
func WithSiteDirs(fn func(string) bool) Option {
	return func(p *SearchPath) { p.isSite = fn }
}

// New creates a search path with the given entries
func New(entries []string, opts ...Option) *SearchPath {
	p := &SearchPath{
		entries: append([]string(nil), entries...),
		isSite:  IsSiteDir,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse splits a list-separated value, dropping empty elements
func Parse(value string) []string {
	var out []string
	for _, e := range filepath.SplitList(value) {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns a copy of the current entries
func (p *SearchPath) Entries() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.entries...)
}

// Len returns the number of entries
func (p *SearchPath) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Contains reports whether dir is already an entry
func (p *SearchPath) Contains(dir string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.indexOf(dir) >= 0
}

func (p *SearchPath) indexOf(dir string) int {
	want := filepath.Clean(dir)
	for i, e := range p.entries {
		if filepath.Clean(e) == want {
			return i
		}
	}
	return -1
}

// Inject inserts dir immediately before the first site directory, or at the
// end when there is none or when appendOnly is set. Existing entries are
// never moved or removed. It returns false when dir was already present.
func (p *SearchPath) Inject(dir string, appendOnly bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.indexOf(dir) >= 0 {
		return false
	}

	at := len(p.entries)
	if !appendOnly {
		for i, e := range p.entries {
			if p.isSite(e) {
				at = i
				break
			}
		}
	}

	p.entries = append(p.entries, "")
	copy(p.entries[at+1:], p.entries[at:])
	p.entries[at] = dir
	return true
}

// Find returns the first existing candidate, scanning entries in order and
// candidates in order within each entry. Candidates are slash-separated
// paths relative to an entry.
func (p *SearchPath) Find(candidates ...string) (entry, path string, ok bool) {
	for _, e := range p.Entries() {
		for _, c := range candidates {
			full := filepath.Join(e, filepath.FromSlash(c))
			if info, err := os.Stat(full); err == nil && info.Mode().IsRegular() {
				return e, full, true
			}
		}
	}
	return "", "", false
}

// String joins the entries with the list separator
func (p *SearchPath) String() string {
	return strings.Join(p.Entries(), string(os.PathListSeparator))
}

var (
	processOnce sync.Once
	process     *SearchPath
)

// Default returns the process-wide search path, seeding it from the
// environment on first use.
func Default() *SearchPath {
	processOnce.Do(func() {
		process = New(seed())
	})
	return process
}

func seed() []string {
	entries := Parse(os.Getenv(EnvVar))
	if lib := builtinSiteDir(); lib != "" && !containsClean(entries, lib) {
		entries = append(entries, lib)
	}
	return entries
}

// builtinSiteDir is lib/satchel/site-packages next to the bootstrap's
// install prefix, when it exists
func builtinSiteDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	dir := filepath.Join(filepath.Dir(exe), "..", "lib", "satchel", paths.SiteDirName)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return filepath.Clean(dir)
	}
	return ""
}

func containsClean(entries []string, dir string) bool {
	for _, e := range entries {
		if filepath.Clean(e) == filepath.Clean(dir) {
			return true
		}
	}
	return false
}

// Inject adds dir to the process-wide search path
func Inject(dir string, appendOnly bool) bool {
	return Default().Inject(dir, appendOnly)
}

// Export writes the process-wide search path to EnvVar
func Export() error {
	return os.Setenv(EnvVar, Default().String())
}
