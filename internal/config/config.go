package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/GriffinCanCode/satchel/internal/shared/id"
	"github.com/GriffinCanCode/satchel/internal/shared/paths"
)

// Link-time defaults, e.g.
//
//	go build -ldflags "-X github.com/GriffinCanCode/satchel/internal/config.defaultRoot=/var/cache/satchel"
var (
	defaultRoot             string
	defaultEntryPoint       string
	defaultCompileWorkers   = "0"
	defaultAlwaysWriteCache = "true"
)

// Defaults is the compiled-in layer.
type Defaults struct {
	EntryPoint       string
	Root             string
	AlwaysWriteCache bool
	CompileScripts   bool
	CompileWorkers   int
	AppendSearchPath bool
}

// Effective is the resolved runtime configuration.
type Effective struct {
	// EntryPoint is a module.path:attribute reference; empty means none
	EntryPoint string
	// Interpreter forces an interactive session
	Interpreter bool
	// Root is the cache root directory
	Root string
	// ForceExtract re-extracts even when a complete cache entry exists
	ForceExtract bool
	// BuildID identifies the payload snapshot; empty when the manifest has none
	BuildID string
	// AlwaysWriteCache keeps extractions across runs
	AlwaysWriteCache bool
	// CompileScripts pre-compiles script modules during extraction
	CompileScripts bool
	// CompileWorkers bounds compile parallelism; 0 means CPU count
	CompileWorkers int
	// AppendSearchPath places the cache after existing search path entries
	AppendSearchPath bool

	LogLevel    string
	LogDev      bool
	MetricsFile string
}

// ConfigurationError reports a value that was ignored during resolution.
type ConfigurationError struct {
	Layer string
	Key   string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: ignoring %s=%q: %v", e.Layer, e.Key, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// CompiledDefaults returns the link-time defaults. Malformed link-time values
// fall back to built-in ones.
func CompiledDefaults() Defaults {
	d := Default()
	if defaultRoot != "" {
		d.Root = defaultRoot
	}
	d.EntryPoint = defaultEntryPoint
	if n, err := strconv.Atoi(defaultCompileWorkers); err == nil && n >= 0 {
		d.CompileWorkers = n
	}
	if b, err := strconv.ParseBool(defaultAlwaysWriteCache); err == nil {
		d.AlwaysWriteCache = b
	}
	return d
}

// Default returns built-in defaults.
func Default() Defaults {
	return Defaults{
		Root:             paths.DefaultRoot(),
		AlwaysWriteCache: true,
	}
}

// Resolve layers defaults < manifest < overrides. The returned problems are
// informational; every one of them has already been recovered from.
func Resolve(d Defaults, m Manifest, o Overrides) (Effective, []error) {
	var problems []error

	eff := Effective{
		EntryPoint:       d.EntryPoint,
		Root:             d.Root,
		AlwaysWriteCache: d.AlwaysWriteCache,
		CompileScripts:   d.CompileScripts,
		CompileWorkers:   d.CompileWorkers,
		AppendSearchPath: d.AppendSearchPath,
		LogLevel:         "warn",
	}

	// Manifest layer
	if m.BuildID != "" {
		if err := id.BuildID(m.BuildID).Validate(); err != nil {
			problems = append(problems, &ConfigurationError{Layer: "manifest", Key: KeyBuildID, Value: m.BuildID, Err: err})
		} else {
			eff.BuildID = m.BuildID
		}
	}
	if m.EntryPoint != nil {
		eff.EntryPoint = *m.EntryPoint
	}
	if m.Root != nil {
		eff.Root = expandRoot(*m.Root)
	}
	if m.AlwaysWriteCache != nil {
		eff.AlwaysWriteCache = *m.AlwaysWriteCache
	}
	if m.CompileScripts != nil {
		eff.CompileScripts = *m.CompileScripts
	}
	if m.CompileWorkers != nil {
		if *m.CompileWorkers < 0 {
			problems = append(problems, &ConfigurationError{Layer: "manifest", Key: KeyCompileWorkers,
				Value: strconv.Itoa(*m.CompileWorkers), Err: errors.New("must not be negative")})
		} else {
			eff.CompileWorkers = *m.CompileWorkers
		}
	}
	if m.AppendSearchPath != nil {
		eff.AppendSearchPath = *m.AppendSearchPath
	}

	// Environment layer
	if o.EntryPoint != nil {
		eff.EntryPoint = *o.EntryPoint
	}
	if present(o.Interpreter) {
		eff.Interpreter = true
	}
	if o.Root != nil {
		eff.Root = expandRoot(*o.Root)
	}
	if present(o.ForceExtract) {
		eff.ForceExtract = true
	}
	if present(o.Compile) {
		eff.CompileScripts = true
	}
	if o.CompileWorkers != nil {
		n, err := strconv.Atoi(*o.CompileWorkers)
		switch {
		case err != nil:
			problems = append(problems, &ConfigurationError{Layer: "environment", Key: EnvPrefix + "_COMPILE_WORKERS", Value: *o.CompileWorkers, Err: err})
		case n < 0:
			problems = append(problems, &ConfigurationError{Layer: "environment", Key: EnvPrefix + "_COMPILE_WORKERS", Value: *o.CompileWorkers, Err: errors.New("must not be negative")})
		default:
			eff.CompileWorkers = n
		}
	}
	if o.LogLevel != nil && *o.LogLevel != "" {
		eff.LogLevel = *o.LogLevel
	}
	eff.LogDev = present(o.LogDev)
	if o.MetricsFile != nil {
		eff.MetricsFile = *o.MetricsFile
	}

	return eff, problems
}

// present implements presence-as-true for boolean overrides
func present(v *string) bool {
	return v != nil && *v != ""
}

// expandRoot resolves a leading ~ against the home directory; anything else is literal
func expandRoot(root string) string {
	if root == "~" || (len(root) > 1 && root[0] == '~' && (root[1] == '/' || root[1] == filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, root[1:])
		}
	}
	return root
}
