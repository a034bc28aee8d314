package modules

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GriffinCanCode/satchel/internal/shared/utils"
)

// Namespace is the attribute table of a native module. Values may be Go
// functions, plain values or nested Namespaces.
type Namespace map[string]interface{}

// Registry holds native modules compiled into the bootstrap
type Registry struct {
	modules sync.Map
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a native module under a dotted name
func (r *Registry) Register(name string, ns Namespace) error {
	parts, err := utils.SplitDotted("module", name)
	if err != nil {
		return err
	}
	if ns == nil {
		return fmt.Errorf("module %s: namespace cannot be nil", name)
	}
	r.modules.Store(strings.Join(parts, "."), ns)
	return nil
}

// MustRegister is Register for package initialisation
func (r *Registry) MustRegister(name string, ns Namespace) {
	if err := r.Register(name, ns); err != nil {
		panic(err)
	}
}

// Unregister removes a native module
func (r *Registry) Unregister(name string) {
	r.modules.Delete(name)
}

// Get retrieves a native module by dotted name
func (r *Registry) Get(name string) (Namespace, bool) {
	val, ok := r.modules.Load(name)
	if !ok {
		return nil, false
	}
	return val.(Namespace), true
}

// List returns the registered module names in order
func (r *Registry) List() []string {
	var names []string
	r.modules.Range(func(key, _ interface{}) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}
