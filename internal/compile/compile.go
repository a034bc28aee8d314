package compile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"golang.org/x/sync/errgroup"
)

// DefaultPatterns select the source units compiled by default
var DefaultPatterns = []string{"**/*.js"}

// Compiler compiles one source unit in place.
type Compiler interface {
	Compile(ctx context.Context, path string) error
}

// CompilerFunc adapts a function to Compiler
type CompilerFunc func(ctx context.Context, path string) error

// Compile calls f
func (f CompilerFunc) Compile(ctx context.Context, path string) error {
	return f(ctx, path)
}

// UnitError is a per-unit failure that does not stop the run, such as a
// syntax error in a dependency that is never loaded.
type UnitError struct {
	Path string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Path, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// Stats summarises a compile run
type Stats struct {
	Compiled int
	Failed   []*UnitError
}

// Options for Tree
type Options struct {
	// Workers bounds parallelism; 0 means runtime.NumCPU()
	Workers int
	// Patterns are doublestar patterns relative to the tree root
	Patterns []string
	// OnUnit is called after each unit, from worker goroutines
	OnUnit func(path string, err error)
}

// Tree compiles every matching unit under dir. Unit failures are collected
// in Stats; any other error aborts the run.
func Tree(ctx context.Context, dir string, c Compiler, opts Options) (Stats, error) {
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return Stats{}, fmt.Errorf("invalid pattern %q", p)
		}
	}

	units, err := findUnits(ctx, dir, patterns)
	if err != nil {
		return Stats{}, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		compiled atomic.Int64
		mu       sync.Mutex
		failed   []*UnitError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, unit := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := c.Compile(gctx, unit)
			if opts.OnUnit != nil {
				opts.OnUnit(unit, err)
			}

			var uerr *UnitError
			switch {
			case err == nil:
				compiled.Add(1)
			case errors.As(err, &uerr):
				mu.Lock()
				failed = append(failed, uerr)
				mu.Unlock()
			default:
				return fmt.Errorf("compile %s: %w", unit, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	sort.Slice(failed, func(i, j int) bool { return failed[i].Path < failed[j].Path })
	return Stats{Compiled: int(compiled.Load()), Failed: failed}, nil
}

func findUnits(ctx context.Context, dir string, patterns []string) ([]string, error) {
	var (
		mu    sync.Mutex
		units []string
	)
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, rel); ok {
				mu.Lock()
				units = append(units, path)
				mu.Unlock()
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	sort.Strings(units)
	return units, nil
}
