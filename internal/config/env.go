package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every override variable
const EnvPrefix = "SATCHEL"

// Overrides is the environment layer. Every field is a pointer so that an
// unset variable (nil) is distinguishable from an empty one. Tags carry the
// full variable name; envconfig falls back to the bare tag when a prefixed
// key is unset, so a prefix would let ROOT or ENTRY_POINT leak in.
type Overrides struct {
	EntryPoint     *string `envconfig:"SATCHEL_ENTRY_POINT"`
	Interpreter    *string `envconfig:"SATCHEL_INTERPRETER"`
	Root           *string `envconfig:"SATCHEL_ROOT"`
	ForceExtract   *string `envconfig:"SATCHEL_FORCE_EXTRACT"`
	Compile        *string `envconfig:"SATCHEL_COMPILE"`
	CompileWorkers *string `envconfig:"SATCHEL_COMPILE_WORKERS"`

	LogLevel    *string `envconfig:"SATCHEL_LOG_LEVEL"`
	LogDev      *string `envconfig:"SATCHEL_LOG_DEV"`
	MetricsFile *string `envconfig:"SATCHEL_METRICS_FILE"`
}

// LoadOverrides reads the environment layer.
func LoadOverrides() (Overrides, error) {
	var o Overrides
	if err := envconfig.Process("", &o); err != nil {
		return Overrides{}, fmt.Errorf("failed to load overrides: %w", err)
	}
	return o, nil
}

// LoadOverridesOrEmpty reads the environment layer, ignoring it entirely if
// it cannot be read.
func LoadOverridesOrEmpty() Overrides {
	o, err := LoadOverrides()
	if err != nil {
		return Overrides{}
	}
	return o
}

// Usage lists the recognised variables
func Usage() []string {
	keys := []string{"ENTRY_POINT", "INTERPRETER", "ROOT", "FORCE_EXTRACT", "COMPILE",
		"COMPILE_WORKERS", "LOG_LEVEL", "LOG_DEV", "METRICS_FILE"}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = EnvPrefix + "_" + k
	}
	return out
}
