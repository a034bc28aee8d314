package modules

import (
	"errors"
	"fmt"
)

var (
	// ErrImport is matched by every entry point resolution failure
	ErrImport = errors.New("import error")
	// ErrNotFound means no module of that name exists on the search path
	ErrNotFound = errors.New("module not found")
	// ErrNoAttribute means an attribute chain could not be walked
	ErrNoAttribute = errors.New("no such attribute")
	// ErrNotCallable means the resolved target cannot be invoked
	ErrNotCallable = errors.New("not callable")
)

// ResolutionError reports a reference that could not be imported or resolved
type ResolutionError struct {
	Ref string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %v", e.Ref, e.Err)
}

// Unwrap exposes both ErrImport and the underlying cause
func (e *ResolutionError) Unwrap() []error {
	return []error{ErrImport, e.Err}
}

// ExitError carries an explicit exit status requested by the called code
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
