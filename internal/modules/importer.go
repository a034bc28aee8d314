package modules

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/satchel/internal/compile"
	"github.com/GriffinCanCode/satchel/internal/logging"
	"github.com/GriffinCanCode/satchel/internal/shared/utils"
	"github.com/GriffinCanCode/satchel/internal/sitepath"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Kind classifies a module by how it was loaded
type Kind int

const (
	KindNative Kind = iota
	KindScript
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindScript:
		return "script"
	case KindCommand:
		return "command"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Module is an imported module
type Module struct {
	Name string
	Kind Kind
	// Path is the source file or executable; empty for native modules
	Path string

	exports interface{}
	vm      *goja.Runtime
}

// Exports returns the module's export value: a Namespace for native
// modules, a goja.Value for script modules, nil for command modules
func (m *Module) Exports() interface{} {
	return m.exports
}

// Attr looks up a single exported attribute
func (m *Module) Attr(name string) (interface{}, bool) {
	return attr(m.vm, m.exports, name)
}

// Options configures an Importer
type Options struct {
	Registry *Registry
	Path     *sitepath.SearchPath
	Compiler *compile.ScriptCompiler
	Logger   *logging.Logger

	// Args is exposed to scripts as process.argv
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Importer loads modules and caches them by name. It owns one script
// runtime and is not safe for concurrent use.
type Importer struct {
	opts     Options
	log      *logging.Logger
	vm       *goja.Runtime
	loaded   map[string]*Module
	byPath   map[string]*Module
	compiler *compile.ScriptCompiler
}

// NewImporter creates an importer. Nil fields of opts get process defaults.
func NewImporter(opts Options) *Importer {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Path == nil {
		opts.Path = sitepath.Default()
	}
	if opts.Compiler == nil {
		opts.Compiler = compile.NewScriptCompiler()
	}
	if opts.Args == nil {
		opts.Args = []string{}
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

	imp := &Importer{
		opts:     opts,
		log:      logging.Or(opts.Logger),
		vm:       goja.New(),
		loaded:   make(map[string]*Module),
		byPath:   make(map[string]*Module),
		compiler: opts.Compiler,
	}
	imp.setupGlobals()
	return imp
}

// Runtime returns the script runtime shared by all script modules
func (imp *Importer) Runtime() *goja.Runtime {
	return imp.vm
}

// SearchPath returns the path the importer searches
func (imp *Importer) SearchPath() *sitepath.SearchPath {
	return imp.opts.Path
}

// Loaded returns the already imported module of that name, if any
func (imp *Importer) Loaded(name string) (*Module, bool) {
	m, ok := imp.loaded[name]
	return m, ok
}

// Import returns the module with the given name, loading it on first use.
// Names are dotted (pkg.mod) or slash separated (pkg/mod).
func (imp *Importer) Import(name string) (*Module, error) {
	parts, err := splitName(name)
	if err != nil {
		return nil, err
	}
	key := strings.Join(parts, ".")

	if m, ok := imp.loaded[key]; ok {
		return m, nil
	}

	if ns, ok := imp.opts.Registry.Get(key); ok {
		m := &Module{Name: key, Kind: KindNative, exports: ns, vm: imp.vm}
		imp.loaded[key] = m
		return m, nil
	}

	rel := strings.Join(parts, "/")
	if _, path, ok := imp.opts.Path.Find(rel+".js", rel+"/index.js"); ok {
		return imp.loadScript(key, path)
	}

	if path, ok := imp.findCommand(rel); ok {
		m := &Module{Name: key, Kind: KindCommand, Path: path, vm: imp.vm}
		imp.loaded[key] = m
		imp.log.Debug("command module found", zap.String("module", key), zap.String("path", path))
		return m, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
}

func (imp *Importer) findCommand(rel string) (string, bool) {
	for _, entry := range imp.opts.Path.Entries() {
		path := filepath.Join(entry, filepath.FromSlash(rel))
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
			return path, true
		}
	}
	return "", false
}

func splitName(name string) ([]string, error) {
	if strings.Contains(name, "/") {
		parts := strings.Split(name, "/")
		for _, p := range parts {
			if err := utils.ValidateIdentifier("module", p); err != nil {
				return nil, err
			}
		}
		return parts, nil
	}
	return utils.SplitDotted("module", name)
}
