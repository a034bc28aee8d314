package cache

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/GriffinCanCode/satchel/internal/archive"
	"github.com/GriffinCanCode/satchel/internal/compile"
	"github.com/GriffinCanCode/satchel/internal/config"
	"github.com/GriffinCanCode/satchel/internal/logging"
	"github.com/GriffinCanCode/satchel/internal/monitoring"
	"github.com/GriffinCanCode/satchel/internal/shared/id"
	"github.com/GriffinCanCode/satchel/internal/shared/paths"
	"github.com/GriffinCanCode/satchel/internal/shared/utils"
	"go.uber.org/zap"
)

// StaleAfter is the age after which leftover staging directories are swept
const StaleAfter = time.Hour

// Directory is a usable extraction of an archive payload
type Directory struct {
	Path string
	// Fresh is true when this run performed the extraction
	Fresh bool
	// Ephemeral directories are removed by Cleanup once the run ends
	Ephemeral bool

	cleanup func() error
}

// Cleanup removes an ephemeral directory. Durable directories are left alone.
func (d *Directory) Cleanup() error {
	if d == nil || d.cleanup == nil {
		return nil
	}
	fn := d.cleanup
	d.cleanup = nil
	return fn()
}

// Manager resolves and populates cache directories
type Manager struct {
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
	Compiler compile.Compiler

	// beforeCommit runs after the staging directory is complete and before it
	// is renamed into place
	beforeCommit func(staging string) error
}

// NewManager creates a manager with the default script compiler
func NewManager(logger *logging.Logger, metrics *monitoring.Metrics) *Manager {
	return &Manager{
		Logger:   logging.Or(logger),
		Metrics:  metrics,
		Compiler: compile.NewScriptCompiler(),
	}
}

// BuildID returns the configured build identity or, when the manifest has
// none, one derived from the archive's central directory. Deriving reads no
// payload bytes but walks every record, so the fast path is then O(records).
func BuildID(h *archive.Handle, cfg config.Effective) string {
	if cfg.BuildID != "" {
		return cfg.BuildID
	}
	digest := utils.DefaultHasher().NewTreeDigest()
	for _, zf := range h.PayloadFiles() {
		meta := strconv.FormatUint(uint64(zf.CRC32), 16) + ":" + strconv.FormatUint(zf.UncompressedSize64, 10)
		digest.Add(zf.Name, strings.NewReader(meta))
	}
	return id.ContentBuildID(digest.Sum()).String()
}

// Path returns the cache directory for an archive
func Path(h *archive.Handle, cfg config.Effective) string {
	return paths.CacheDir(rootOf(cfg), h.OriginPath, BuildID(h, cfg))
}

func rootOf(cfg config.Effective) string {
	if cfg.Root == "" {
		return "."
	}
	return cfg.Root
}

// EnsureExtracted returns a complete cache directory for the archive,
// extracting the payload when no complete directory exists or when forced.
func (m *Manager) EnsureExtracted(ctx context.Context, h *archive.Handle, cfg config.Effective) (*Directory, error) {
	log := logging.Or(m.Logger)
	final := Path(h, cfg)

	if !cfg.ForceExtract && IsComplete(final) {
		m.Metrics.RecordCacheHit()
		return &Directory{Path: final}, nil
	}

	root := rootOf(cfg)
	if err := os.MkdirAll(root, 0o755); err != nil {
		xerr := &ExtractionError{Op: "mkdir", Path: root, Err: err}
		log.Error("cannot create cache root", zap.String("path", root), zap.Error(err))
		return nil, xerr
	}
	m.Sweep(root, filepath.Base(final), StaleAfter)

	if cfg.AlwaysWriteCache {
		return m.extractDurable(ctx, h, cfg, final)
	}
	return m.extractEphemeral(ctx, h, cfg, final)
}

func (m *Manager) extractDurable(ctx context.Context, h *archive.Handle, cfg config.Effective, final string) (*Directory, error) {
	log := logging.Or(m.Logger)
	start := time.Now()

	stage, err := Stage(final)
	if err != nil {
		return nil, m.fail(err, start)
	}
	defer stage.Abort()

	files, size, err := m.populate(ctx, h, cfg, stage.Dir(), final)
	if err != nil {
		return nil, m.fail(err, start)
	}

	if m.beforeCommit != nil {
		if err := m.beforeCommit(stage.Dir()); err != nil {
			return nil, m.fail(err, start)
		}
	}

	var retired string
	if cfg.ForceExtract && IsComplete(final) {
		if retired, err = retire(final); err != nil {
			return nil, m.fail(&ExtractionError{Op: "retire", Path: final, Err: err}, start)
		}
	}

	raced, err := stage.Commit()
	if retired != "" {
		if err != nil && !IsComplete(final) {
			if rerr := os.Rename(retired, final); rerr != nil {
				log.Error("cannot restore previous extraction",
					zap.String("from", retired), zap.String("to", final), zap.Error(rerr))
			}
		} else {
			os.RemoveAll(retired)
		}
	}
	if err != nil {
		return nil, m.fail(err, start)
	}

	result := monitoring.ResultSuccess
	if raced {
		result = monitoring.ResultRaced
		log.Debug("another process committed first", zap.String("dir", final))
	}
	m.Metrics.RecordExtraction(result, files, size, time.Since(start))
	log.Info("payload extracted", zap.String("dir", final), zap.Int("files", files), zap.Duration("took", time.Since(start)))

	return &Directory{Path: final, Fresh: !raced}, nil
}

func (m *Manager) extractEphemeral(ctx context.Context, h *archive.Handle, cfg config.Effective, final string) (*Directory, error) {
	start := time.Now()
	dir, err := os.MkdirTemp(filepath.Dir(final), filepath.Base(final)+paths.EphemeralInfix)
	if err != nil {
		return nil, m.fail(&ExtractionError{Op: "mkdir", Path: filepath.Dir(final), Err: err}, start)
	}

	files, size, err := m.populate(ctx, h, cfg, dir, final)
	if err != nil {
		os.RemoveAll(dir)
		return nil, m.fail(err, start)
	}
	m.Metrics.RecordExtraction(monitoring.ResultSuccess, files, size, time.Since(start))

	return &Directory{
		Path:      dir,
		Fresh:     true,
		Ephemeral: true,
		cleanup:   func() error { return os.RemoveAll(dir) },
	}, nil
}

// populate extracts, compiles and marks dir complete
func (m *Manager) populate(ctx context.Context, h *archive.Handle, cfg config.Effective, dir, final string) (int, int64, error) {
	files, size, err := ExtractPayload(ctx, h, dir)
	if err != nil {
		return 0, 0, err
	}

	if cfg.CompileScripts && m.Compiler != nil {
		if err := m.compile(ctx, dir, cfg.CompileWorkers); err != nil {
			return 0, 0, err
		}
	}

	if err := markComplete(dir, filepath.Base(final)); err != nil {
		return 0, 0, err
	}
	return files, size, nil
}

func (m *Manager) compile(ctx context.Context, dir string, workers int) error {
	log := logging.Or(m.Logger)

	stats, err := compile.Tree(ctx, dir, m.Compiler, compile.Options{
		Workers: workers,
		OnUnit: func(path string, err error) {
			m.Metrics.RecordCompile(err == nil)
		},
	})
	if err != nil {
		return &ExtractionError{Op: "compile", Path: dir, Err: err}
	}
	for _, f := range stats.Failed {
		log.Debug("unit not pre-compiled", zap.String("path", f.Path), zap.Error(f.Err))
	}
	return nil
}

func (m *Manager) fail(err error, start time.Time) error {
	var xerr *ExtractionError
	if !errors.As(err, &xerr) {
		xerr = &ExtractionError{Op: "extract", Err: err}
	}
	logging.Or(m.Logger).Error("extraction failed",
		zap.String("op", xerr.Op), zap.String("path", xerr.Path), zap.Error(xerr.Err))
	m.Metrics.RecordExtraction(monitoring.ResultFailure, 0, 0, time.Since(start))
	return xerr
}

// ExtractPayload writes every payload record into dest with the payload
// prefix stripped. Records that would land outside dest are skipped.
func ExtractPayload(ctx context.Context, h *archive.Handle, dest string) (files int, size int64, err error) {
	cleanDest := filepath.Clean(dest)

	for _, zf := range h.PayloadFiles() {
		if err := ctx.Err(); err != nil {
			return files, size, &ExtractionError{Op: "extract", Path: dest, Err: err}
		}

		rel, _ := paths.PayloadRelative(zf.Name)
		target := filepath.Join(cleanDest, filepath.FromSlash(rel))
		if !within(cleanDest, target) {
			continue
		}

		mode := zf.Mode()
		switch {
		case mode.IsDir() || strings.HasSuffix(zf.Name, "/"):
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, size, &ExtractionError{Op: "mkdir", Path: target, Err: err}
			}
			continue
		case !mode.IsRegular():
			// links and devices are not extracted
			continue
		}

		n, err := extractFile(zf, target)
		if err != nil {
			return files, size, err
		}
		files++
		size += n
	}

	return files, size, nil
}

func extractFile(zf *zip.File, target string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, &ExtractionError{Op: "mkdir", Path: filepath.Dir(target), Err: err}
	}

	perm := zf.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}

	src, err := zf.Open()
	if err != nil {
		return 0, &ExtractionError{Op: "read", Path: zf.Name, Err: err}
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm|0o200)
	if err != nil {
		return 0, &ExtractionError{Op: "create", Path: target, Err: err}
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, &ExtractionError{Op: "write", Path: target, Err: err}
	}
	return n, nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Sweep removes leftovers of cacheName under root that are older than age:
// staging directories, and retired directories once a complete entry is back
// in place. Run-scoped directories belong to a live process and are never
// swept; their mtime does not move while the payload is only read.
// Errors are logged and otherwise ignored.
func (m *Manager) Sweep(root, cacheName string, age time.Duration) int {
	log := logging.Or(m.Logger)

	entries, err := os.ReadDir(root)
	if err != nil {
		return 0
	}

	finalComplete := IsComplete(filepath.Join(root, cacheName))
	cutoff := time.Now().Add(-age)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		switch {
		case paths.IsStagingName(cacheName, e.Name()):
		case paths.IsRetiredName(cacheName, e.Name()) && finalComplete:
			// a forced run restores its retired copy only while the final
			// path is incomplete
		default:
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(root, e.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Warn("cannot remove stale directory", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	return removed
}

// String implements fmt.Stringer
func (d *Directory) String() string {
	kind := "durable"
	if d.Ephemeral {
		kind = "ephemeral"
	}
	return fmt.Sprintf("%s (%s)", d.Path, kind)
}
