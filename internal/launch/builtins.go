package launch

import (
	"context"

	"github.com/GriffinCanCode/satchel/internal/modules"
	"github.com/GriffinCanCode/satchel/internal/sitepath"
)

// BuiltinModule is the name the bootstrap's own module is registered under
const BuiltinModule = "satchel"

// Info describes the running bootstrap to scripts
type Info struct {
	Version  string
	Archive  string
	CacheDir string
	BuildID  string
}

// Builtins returns the namespace of the bootstrap's own module:
//
//	const satchel = require('satchel');
//	satchel.searchPath();
//
// ctx bounds sessions opened through interact().
func (l *Launcher) Builtins(ctx context.Context, info Info, path *sitepath.SearchPath) modules.Namespace {
	return modules.Namespace{
		"version":  info.Version,
		"archive":  info.Archive,
		"cacheDir": info.CacheDir,
		"buildId":  info.BuildID,
		"searchPath": func() []string {
			return path.Entries()
		},
		"interact": func() int {
			return l.Interact(ctx)
		},
	}
}
