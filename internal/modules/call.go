package modules

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"reflect"

	"github.com/dop251/goja"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	argsType    = reflect.TypeOf([]string(nil))
)

// Call invokes a resolved target and maps its outcome to an exit status:
// no result is 0, an integer is that status, an error or exception is 1
// unless it carries its own status.
//
// Go functions may take any of context.Context and []string (or ...string)
// and return any of int and error. Script functions are called without
// arguments; args are visible as process.argv. A module is called through
// its main attribute, or directly when its exports are a function. Command
// modules run as child processes with args.
func (imp *Importer) Call(ctx context.Context, target interface{}, args []string) (int, error) {
	switch t := target.(type) {
	case nil:
		return 0, fmt.Errorf("%w: nil", ErrNotCallable)
	case *Module:
		return imp.callModule(ctx, t, args)
	case goja.Value:
		return imp.callScript(ctx, t)
	}

	fn := reflect.ValueOf(target)
	if fn.Kind() != reflect.Func {
		return 0, fmt.Errorf("%w: %T", ErrNotCallable, target)
	}
	return callNative(ctx, fn, args)
}

func (imp *Importer) callModule(ctx context.Context, m *Module, args []string) (int, error) {
	if m.Kind == KindCommand {
		return imp.runCommand(ctx, m.Path, args)
	}
	if main, ok := m.Attr("main"); ok {
		return imp.Call(ctx, main, args)
	}
	if v, ok := m.exports.(goja.Value); ok {
		if _, ok := goja.AssertFunction(v); ok {
			return imp.callScript(ctx, v)
		}
	}
	return 0, fmt.Errorf("%w: module %s has no main", ErrNotCallable, m.Name)
}

func (imp *Importer) callScript(ctx context.Context, v goja.Value) (int, error) {
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotCallable, v.String())
	}

	var ret goja.Value
	err := imp.guard(ctx, func() error {
		var err error
		ret, err = fn(goja.Undefined())
		return err
	})
	if err != nil {
		return exitStatus(err)
	}
	if ret == nil || goja.IsUndefined(ret) || goja.IsNull(ret) {
		return 0, nil
	}
	return resultCode(ret.Export())
}

// resultCode maps a returned value to an exit status
func resultCode(v interface{}) (int, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return int(x), nil
	case float64:
		if x == math.Trunc(x) {
			return int(x), nil
		}
	case error:
		return 1, x
	}
	return 0, nil
}

// callNative adapts a Go function to the entry point calling convention
func callNative(ctx context.Context, fn reflect.Value, args []string) (int, error) {
	t := fn.Type()

	in := make([]reflect.Value, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		switch t.In(i) {
		case contextType:
			in[i] = reflect.ValueOf(ctx)
		case argsType:
			in[i] = reflect.ValueOf(append([]string(nil), args...))
		default:
			return 0, fmt.Errorf("%w: unsupported parameter type %s", ErrNotCallable, t.In(i))
		}
	}
	for i := 0; i < t.NumOut(); i++ {
		out := t.Out(i)
		if out != errorType && !isInt(out) {
			return 0, fmt.Errorf("%w: unsupported result type %s", ErrNotCallable, out)
		}
	}

	var out []reflect.Value
	if t.IsVariadic() {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}

	code := 0
	var err error
	for _, v := range out {
		if v.Type() == errorType {
			if !v.IsNil() {
				err = v.Interface().(error)
			}
			continue
		}
		code = int(v.Int())
	}

	if err != nil {
		var exit *ExitError
		if errors.As(err, &exit) {
			return exit.Code, err
		}
		if code == 0 {
			code = 1
		}
	}
	return code, err
}

func isInt(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

// runCommand runs an executable module with inherited stdio
func (imp *Importer) runCommand(ctx context.Context, path string, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = imp.opts.Stdin
	cmd.Stdout = imp.opts.Stdout
	cmd.Stderr = imp.opts.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			code = 1
		}
		return code, &ExitError{Code: code}
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return 127, err
	}
	return 1, err
}
