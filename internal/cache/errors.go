package cache

import "fmt"

// ExtractionError is an unrecoverable I/O failure while populating the cache
type ExtractionError struct {
	Op   string
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
