package modules

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/GriffinCanCode/satchel/internal/shared/utils"
	"github.com/dop251/goja"
)

// Resolve imports the module named by ref and walks its attribute chain.
// Every failure is a *ResolutionError.
func (imp *Importer) Resolve(ref string) (interface{}, error) {
	if err := utils.ValidateReference(ref); err != nil {
		return nil, &ResolutionError{Ref: ref, Err: err}
	}

	if modPath, attrPath, ok := strings.Cut(ref, ":"); ok {
		m, err := imp.Import(modPath)
		if err != nil {
			return nil, &ResolutionError{Ref: ref, Err: err}
		}
		chain, err := utils.SplitDotted("attribute", attrPath)
		if err != nil {
			return nil, &ResolutionError{Ref: ref, Err: err}
		}
		return imp.walk(ref, m, chain)
	}

	parts, err := utils.SplitDotted("module", ref)
	if err != nil {
		return nil, &ResolutionError{Ref: ref, Err: err}
	}

	// longest importable prefix wins
	for i := len(parts); i > 0; i-- {
		m, err := imp.Import(strings.Join(parts[:i], "."))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, &ResolutionError{Ref: ref, Err: err}
		}
		return imp.walk(ref, m, parts[i:])
	}
	return nil, &ResolutionError{Ref: ref, Err: fmt.Errorf("%w: %s", ErrNotFound, parts[0])}
}

func (imp *Importer) walk(ref string, m *Module, chain []string) (interface{}, error) {
	var cur interface{} = m
	where := m.Name
	for _, name := range chain {
		next, ok := attr(imp.vm, cur, name)
		if !ok {
			return nil, &ResolutionError{Ref: ref, Err: fmt.Errorf("%w: %s has no attribute %s", ErrNoAttribute, where, name)}
		}
		cur = next
		where += "." + name
	}
	return cur, nil
}

// attr looks up one attribute on a module, namespace, script object or Go value
func attr(vm *goja.Runtime, v interface{}, name string) (interface{}, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case *Module:
		return attr(vm, x.exports, name)
	case Namespace:
		val, ok := x[name]
		return val, ok
	case map[string]interface{}:
		val, ok := x[name]
		return val, ok
	case goja.Value:
		obj, ok := x.(*goja.Object)
		if !ok {
			return nil, false
		}
		p := obj.Get(name)
		if p == nil || goja.IsUndefined(p) {
			return nil, false
		}
		return p, true
	}

	rv := reflect.ValueOf(v)
	if method := rv.MethodByName(name); method.IsValid() {
		return method.Interface(), true
	}
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		if f := rv.FieldByName(name); f.IsValid() && f.CanInterface() {
			return f.Interface(), true
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			if val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())); val.IsValid() {
				return val.Interface(), true
			}
		}
	}
	return nil, false
}
