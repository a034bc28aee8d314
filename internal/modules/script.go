package modules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/satchel/internal/compile"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// exitSignal is thrown by process.exit
type exitSignal struct {
	code int
}

// setupGlobals installs console, process and a top-level require
func (imp *Importer) setupGlobals() {
	vm := imp.vm

	console := vm.NewObject()
	console.Set("log", imp.makeConsoleFunc(false))
	console.Set("info", imp.makeConsoleFunc(false))
	console.Set("warn", imp.makeConsoleFunc(true))
	console.Set("error", imp.makeConsoleFunc(true))
	vm.Set("console", console)

	process := vm.NewObject()
	process.Set("argv", imp.opts.Args)
	process.Set("env", environ())
	process.Set("cwd", func() string {
		wd, _ := os.Getwd()
		return wd
	})
	process.Set("exit", func(call goja.FunctionCall) goja.Value {
		code := 0
		if arg := call.Argument(0); !goja.IsUndefined(arg) {
			code = int(arg.ToInteger())
		}
		panic(vm.ToValue(&exitSignal{code: code}))
	})
	vm.Set("process", process)

	wd, _ := os.Getwd()
	vm.Set("require", imp.makeRequire(wd))
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func (imp *Importer) makeConsoleFunc(stderr bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		w := imp.opts.Stdout
		if stderr {
			w = imp.opts.Stderr
		}
		fmt.Fprintln(w, strings.Join(parts, " "))
		return goja.Undefined()
	}
}

// makeRequire returns a require function resolving relative names against dir
func (imp *Importer) makeRequire(dir string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()

		var (
			m   *Module
			err error
		)
		if strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../") || filepath.IsAbs(name) {
			m, err = imp.requireFile(dir, name)
		} else {
			m, err = imp.Import(name)
		}
		if err != nil {
			// script exceptions, process.exit included, pass through unchanged
			var ex *goja.Exception
			if errors.As(err, &ex) {
				panic(ex.Value())
			}
			panic(imp.vm.NewGoError(err))
		}
		return imp.vm.ToValue(m.exports)
	}
}

func (imp *Importer) requireFile(dir, name string) (*Module, error) {
	base := name
	if !filepath.IsAbs(base) {
		base = filepath.Join(dir, filepath.FromSlash(name))
	}
	for _, candidate := range []string{base, base + ".js", filepath.Join(base, "index.js")} {
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return imp.loadScript("", candidate)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// loadScript runs a script module body once and records its exports. The
// module is visible to require before its body finishes, so cycles see a
// partially initialised exports object.
func (imp *Importer) loadScript(name, path string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if m, ok := imp.byPath[abs]; ok {
		if name != "" {
			imp.loaded[name] = m
		}
		return m, nil
	}

	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}

	wrapped, fromSidecar := imp.compiler.Load(abs, src)
	if !fromSidecar {
		wrapped = compile.Wrap(src)
	}

	prog, err := goja.Compile(abs, wrapped, false)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", abs, err)
	}
	fnVal, err := imp.vm.RunProgram(prog)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", abs, err)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, fmt.Errorf("load %s: module wrapper is not a function", abs)
	}

	vm := imp.vm
	exports := vm.NewObject()
	module := vm.NewObject()
	module.Set("exports", exports)
	module.Set("id", name)
	module.Set("filename", abs)

	m := &Module{Name: name, Kind: KindScript, Path: abs, exports: exports, vm: vm}
	imp.byPath[abs] = m
	if name != "" {
		imp.loaded[name] = m
	}

	dir := filepath.Dir(abs)
	_, err = fn(goja.Undefined(), exports, vm.ToValue(imp.makeRequire(dir)), module, vm.ToValue(abs), vm.ToValue(dir))
	if err != nil {
		delete(imp.byPath, abs)
		if name != "" {
			delete(imp.loaded, name)
		}
		return nil, fmt.Errorf("load %s: %w", abs, err)
	}

	m.exports = module.Get("exports")
	imp.log.Debug("script module loaded", zap.String("module", name), zap.String("path", abs), zap.Bool("precompiled", fromSidecar))
	return m, nil
}

// RunScript executes a script file as the main program and returns its
// exit status
func (imp *Importer) RunScript(ctx context.Context, path string, args []string) (int, error) {
	argv := append([]string{path}, args...)
	imp.vm.Get("process").ToObject(imp.vm).Set("argv", argv)

	err := imp.guard(ctx, func() error {
		_, err := imp.loadScript("", path)
		return err
	})
	if err != nil {
		return exitStatus(err)
	}
	return 0, nil
}

// Eval evaluates source in the global scope
func (imp *Importer) Eval(ctx context.Context, name, src string) (goja.Value, error) {
	var v goja.Value
	err := imp.guard(ctx, func() error {
		var err error
		v, err = imp.vm.RunScript(name, src)
		return err
	})
	return v, err
}

// guard interrupts the runtime when ctx is done while fn runs
func (imp *Importer) guard(ctx context.Context, fn func() error) error {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			imp.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	err := fn()
	close(done)
	<-stopped
	imp.vm.ClearInterrupt()
	return err
}

// exitStatus maps a script failure to an exit code. process.exit(n) yields
// n with a nil error when n is 0.
func exitStatus(err error) (int, error) {
	if code, ok := ExitRequested(err); ok {
		if code == 0 {
			return 0, nil
		}
		return code, &ExitError{Code: code}
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code, err
	}
	return 1, err
}

// ExitRequested reports whether err was raised by process.exit and with
// which status
func ExitRequested(err error) (int, bool) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		if sig, ok := ex.Value().Export().(*exitSignal); ok {
			return sig.code, true
		}
	}
	return 0, false
}
