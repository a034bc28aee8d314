package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/GriffinCanCode/satchel/internal/archive"
	"github.com/GriffinCanCode/satchel/internal/cache"
	"github.com/GriffinCanCode/satchel/internal/config"
	"github.com/GriffinCanCode/satchel/internal/launch"
	"github.com/GriffinCanCode/satchel/internal/logging"
	"github.com/GriffinCanCode/satchel/internal/modules"
	"github.com/GriffinCanCode/satchel/internal/monitoring"
	"github.com/GriffinCanCode/satchel/internal/sitepath"
	"go.uber.org/zap"
)

// Options configures a run. Zero values select process defaults.
type Options struct {
	// ArchivePath replaces self-detection of the running executable
	ArchivePath string
	// Args are the program arguments without the program name
	Args    []string
	Version string

	Defaults *config.Defaults
	Path     *sitepath.SearchPath
	Registry *modules.Registry
	Logger   *logging.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the bootstrap sequence and returns the exit status
func Run(ctx context.Context, opts Options) int {
	opts = withDefaults(opts)

	overrides, envErr := config.LoadOverrides()
	log := opts.Logger
	if log == nil {
		log = newLogger(overrides)
		defer log.Sync()
	}
	if envErr != nil {
		log.Warn("environment overrides ignored", zap.Error(envErr))
	}

	h, err := openArchive(opts.ArchivePath)
	switch {
	case errors.Is(err, archive.ErrNotArchive):
		log.Info("not running from an archive", zap.Error(err))
	case err != nil:
		log.Warn("archive unreadable, continuing without payload", zap.Error(err))
	default:
		defer h.Close()
	}

	var manifest config.Manifest
	if h != nil {
		manifest = readManifest(h, log)
	}

	cfg, problems := config.Resolve(*opts.Defaults, manifest, overrides)
	for _, p := range problems {
		log.Warn("configuration value ignored", zap.Error(p))
	}

	metrics := monitoring.NewMetrics()
	if cfg.MetricsFile != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				log.Warn("metrics not written", zap.String("path", cfg.MetricsFile), zap.Error(err))
			}
		}()
	}

	info := launch.Info{Version: opts.Version}
	if h != nil {
		mgr := cache.NewManager(log, metrics)
		dir, err := mgr.EnsureExtracted(ctx, h, cfg)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "satchel: %v\n", err)
			return launch.ExitExtraction
		}
		defer func() {
			if err := dir.Cleanup(); err != nil {
				log.Warn("ephemeral directory not removed", zap.String("path", dir.Path), zap.Error(err))
			}
		}()

		opts.Path.Inject(dir.Path, cfg.AppendSearchPath)
		info.Archive = h.OriginPath
		info.CacheDir = dir.Path
		info.BuildID = cache.BuildID(h, cfg)
		log.Debug("search path ready", zap.Stringer("cache", dir), zap.Strings("path", opts.Path.Entries()))
	}

	if err := os.Setenv(sitepath.EnvVar, opts.Path.String()); err != nil {
		log.Warn("search path not exported", zap.Error(err))
	}

	imp := modules.NewImporter(modules.Options{
		Registry: opts.Registry,
		Path:     opts.Path,
		Logger:   log,
		Args:     opts.Args,
		Stdin:    opts.Stdin,
		Stdout:   opts.Stdout,
		Stderr:   opts.Stderr,
	})

	l := launch.New(imp, log, opts.Args)
	l.Stdin, l.Stdout, l.Stderr = opts.Stdin, opts.Stdout, opts.Stderr

	if err := opts.Registry.Register(launch.BuiltinModule, l.Builtins(ctx, info, opts.Path)); err != nil {
		log.Warn("builtin module not registered", zap.Error(err))
	}

	return l.Launch(ctx, cfg)
}

func withDefaults(opts Options) Options {
	if opts.Defaults == nil {
		d := config.CompiledDefaults()
		opts.Defaults = &d
	}
	if opts.Path == nil {
		opts.Path = sitepath.Default()
	}
	if opts.Registry == nil {
		opts.Registry = modules.NewRegistry()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return opts
}

func newLogger(o config.Overrides) *logging.Logger {
	cfg := logging.DefaultConfig()
	if o.LogDev != nil && *o.LogDev != "" {
		cfg = logging.DevelopmentConfig()
	}
	if o.LogLevel != nil && *o.LogLevel != "" {
		cfg.Level = *o.LogLevel
	}
	log, err := logging.New(cfg)
	if err != nil {
		log = logging.NewDefault()
		log.Warn("invalid log configuration", zap.Error(err))
	}
	return log
}

func openArchive(path string) (*archive.Handle, error) {
	if path == "" {
		return archive.Current()
	}
	return archive.Open(path)
}

// readManifest returns the manifest layer, logging anything that had to be
// dropped from it
func readManifest(h *archive.Handle, log *logging.Logger) config.Manifest {
	rec, ok, err := h.Manifest()
	if err != nil {
		log.Warn("manifest unreadable, using defaults", zap.String("record", rec.Name), zap.Error(err))
		return config.Manifest{}
	}
	if !ok {
		log.Debug("archive has no manifest", zap.String("archive", h.OriginPath))
		return config.Manifest{}
	}

	m, err := config.DecodeManifest(rec.Name, rec.Data)
	if err != nil {
		log.Warn("manifest values ignored", zap.String("record", rec.Name), zap.Error(err))
	}
	return m
}
