package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/GriffinCanCode/satchel/internal/shared/paths"
	"github.com/google/uuid"
)

// Staging is a directory that becomes visible under its final name only on
// Commit. Until then nothing exists at the final path on its behalf, so an
// abandoned Staging leaves no observable cache entry.
type Staging struct {
	dir       string
	final     string
	committed bool
}

// Stage creates a temporary sibling of final
func Stage(final string) (*Staging, error) {
	parent := filepath.Dir(final)
	dir, err := os.MkdirTemp(parent, filepath.Base(final)+paths.StagingInfix)
	if err != nil {
		return nil, &ExtractionError{Op: "stage", Path: parent, Err: err}
	}
	return &Staging{dir: dir, final: final}, nil
}

// Dir is where content is written before Commit
func (s *Staging) Dir() string { return s.dir }

// Final is the path the directory is committed to
func (s *Staging) Final() string { return s.final }

// Commit renames the staging directory into place. When another process has
// already committed a complete directory under the final name, the staging
// copy is discarded and raced is true; content for one build identity is
// identical, so either copy is acceptable.
func (s *Staging) Commit() (raced bool, err error) {
	if s.committed {
		return false, errors.New("staging already committed")
	}

	err = os.Rename(s.dir, s.final)
	if err == nil {
		s.committed = true
		return false, nil
	}

	if IsComplete(s.final) {
		s.Abort()
		return true, nil
	}

	// An incomplete directory sits at the final path (left behind by an
	// external tool or a partial delete). Move it aside and retry once.
	if _, statErr := os.Lstat(s.final); statErr == nil {
		retired, retireErr := retire(s.final)
		if retireErr != nil {
			return false, &ExtractionError{Op: "commit", Path: s.final, Err: retireErr}
		}
		defer os.RemoveAll(retired)

		if err = os.Rename(s.dir, s.final); err == nil {
			s.committed = true
			return false, nil
		}
		if IsComplete(s.final) {
			s.Abort()
			return true, nil
		}
	}

	return false, &ExtractionError{Op: "commit", Path: s.final, Err: err}
}

// Abort removes the staging directory. It is a no-op after Commit.
func (s *Staging) Abort() error {
	if s.committed {
		return nil
	}
	s.committed = true
	return os.RemoveAll(s.dir)
}

// IsComplete reports whether dir holds a finished extraction. It costs one stat.
func IsComplete(dir string) bool {
	info, err := os.Stat(paths.MarkerPath(dir))
	return err == nil && info.Mode().IsRegular()
}

// markComplete writes the completion marker, recording the cache name the
// directory is extracted for
func markComplete(dir, cacheName string) error {
	path := paths.MarkerPath(dir)
	if err := os.WriteFile(path, []byte(cacheName+"\n"), 0o644); err != nil {
		return &ExtractionError{Op: "mark", Path: path, Err: err}
	}
	return nil
}

// retire renames path to a unique sibling and returns the new name
func retire(path string) (string, error) {
	retired := fmt.Sprintf("%s%s%s", path, paths.RetiredInfix, uuid.NewString()[:8])
	if err := os.Rename(path, retired); err != nil {
		return "", err
	}
	return retired, nil
}
