package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(n int) *int       { return &n }

func TestDefault(t *testing.T) {
	d := Default()

	assert.True(t, d.AlwaysWriteCache)
	assert.False(t, d.CompileScripts)
	assert.Equal(t, 0, d.CompileWorkers)
	assert.Equal(t, "", d.EntryPoint)
	assert.Equal(t, ".satchel", filepath.Base(d.Root))
}

func TestResolveDefaultsOnly(t *testing.T) {
	eff, problems := Resolve(Default(), Manifest{}, Overrides{})

	assert.Empty(t, problems)
	assert.Equal(t, "", eff.EntryPoint)
	assert.False(t, eff.Interpreter)
	assert.False(t, eff.ForceExtract)
	assert.True(t, eff.AlwaysWriteCache)
	assert.Equal(t, "warn", eff.LogLevel)
}

func TestResolveManifestOverridesDefaults(t *testing.T) {
	m := Manifest{
		BuildID:          "1234",
		EntryPoint:       strPtr("hello:main"),
		AlwaysWriteCache: boolPtr(false),
		CompileScripts:   boolPtr(true),
		CompileWorkers:   intPtr(4),
		Root:             strPtr("/var/cache/app"),
		AppendSearchPath: boolPtr(true),
	}

	eff, problems := Resolve(Default(), m, Overrides{})

	assert.Empty(t, problems)
	assert.Equal(t, "1234", eff.BuildID)
	assert.Equal(t, "hello:main", eff.EntryPoint)
	assert.False(t, eff.AlwaysWriteCache)
	assert.True(t, eff.CompileScripts)
	assert.Equal(t, 4, eff.CompileWorkers)
	assert.Equal(t, "/var/cache/app", eff.Root)
	assert.True(t, eff.AppendSearchPath)
}

func TestResolveEnvironmentPrecedence(t *testing.T) {
	m := Manifest{EntryPoint: strPtr("hello:main"), Root: strPtr("/manifest/root")}

	tests := []struct {
		name  string
		o     Overrides
		check func(t *testing.T, eff Effective)
	}{
		{
			name: "entry point override",
			o:    Overrides{EntryPoint: strPtr("other:run")},
			check: func(t *testing.T, eff Effective) {
				assert.Equal(t, "other:run", eff.EntryPoint)
			},
		},
		{
			name: "empty entry point is a valid override",
			o:    Overrides{EntryPoint: strPtr("")},
			check: func(t *testing.T, eff Effective) {
				assert.Equal(t, "", eff.EntryPoint)
			},
		},
		{
			name: "root override",
			o:    Overrides{Root: strPtr("tmp")},
			check: func(t *testing.T, eff Effective) {
				assert.Equal(t, "tmp", eff.Root)
			},
		},
		{
			name: "unset restores manifest",
			o:    Overrides{},
			check: func(t *testing.T, eff Effective) {
				assert.Equal(t, "hello:main", eff.EntryPoint)
				assert.Equal(t, "/manifest/root", eff.Root)
			},
		},
		{
			name: "interpreter by presence",
			o:    Overrides{Interpreter: strPtr("1")},
			check: func(t *testing.T, eff Effective) {
				assert.True(t, eff.Interpreter)
			},
		},
		{
			name: "empty boolean is not true",
			o:    Overrides{Interpreter: strPtr(""), ForceExtract: strPtr("")},
			check: func(t *testing.T, eff Effective) {
				assert.False(t, eff.Interpreter)
				assert.False(t, eff.ForceExtract)
			},
		},
		{
			name: "any non-empty value is true",
			o:    Overrides{ForceExtract: strPtr("0"), Compile: strPtr("no")},
			check: func(t *testing.T, eff Effective) {
				assert.True(t, eff.ForceExtract)
				assert.True(t, eff.CompileScripts)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eff, problems := Resolve(Default(), m, tt.o)
			assert.Empty(t, problems)
			tt.check(t, eff)
		})
	}
}

func TestResolveForceExtractOverManifest(t *testing.T) {
	m, err := DecodeManifest("environment.json", []byte(`{"force_extract": false, "build_id": "abc"}`))
	require.NoError(t, err)

	eff, _ := Resolve(Default(), m, Overrides{ForceExtract: strPtr("1")})
	assert.True(t, eff.ForceExtract)
}

func TestResolveMalformedValuesFallBack(t *testing.T) {
	m := Manifest{BuildID: "../escape", CompileWorkers: intPtr(-1)}
	o := Overrides{CompileWorkers: strPtr("lots")}

	eff, problems := Resolve(Defaults{CompileWorkers: 2, AlwaysWriteCache: true}, m, o)

	require.Len(t, problems, 3)
	for _, p := range problems {
		var cerr *ConfigurationError
		assert.True(t, errors.As(p, &cerr))
	}
	assert.Equal(t, "", eff.BuildID)
	assert.Equal(t, 2, eff.CompileWorkers)
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	t.Setenv("SATCHEL_ENTRY_POINT", "test")
	t.Setenv("SATCHEL_INTERPRETER", "1")
	t.Setenv("SATCHEL_ROOT", "tmp")
	t.Setenv("SATCHEL_FORCE_EXTRACT", "1")
	t.Setenv("SATCHEL_COMPILE_WORKERS", "3")

	o, err := LoadOverrides()
	require.NoError(t, err)

	require.NotNil(t, o.EntryPoint)
	assert.Equal(t, "test", *o.EntryPoint)
	assert.Nil(t, o.Compile)

	eff, problems := Resolve(Default(), Manifest{}, o)
	assert.Empty(t, problems)
	assert.Equal(t, "test", eff.EntryPoint)
	assert.True(t, eff.Interpreter)
	assert.Equal(t, "tmp", eff.Root)
	assert.True(t, eff.ForceExtract)
	assert.Equal(t, 3, eff.CompileWorkers)
}

func TestLoadOverridesIgnoresUnprefixedVariables(t *testing.T) {
	for _, k := range Usage() {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("ROOT", "/hijacked")
	t.Setenv("INTERPRETER", "1")
	t.Setenv("ENTRY_POINT", "evil:main")
	t.Setenv("COMPILE", "1")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("METRICS_FILE", "/tmp/metrics.prom")

	o, err := LoadOverrides()
	require.NoError(t, err)
	assert.Equal(t, Overrides{}, o)

	m := Manifest{EntryPoint: strPtr("hello:main"), Root: strPtr("/manifest/root")}
	eff, problems := Resolve(Default(), m, o)
	assert.Empty(t, problems)
	assert.Equal(t, "/manifest/root", eff.Root)
	assert.Equal(t, "hello:main", eff.EntryPoint)
	assert.False(t, eff.Interpreter)
	assert.Equal(t, "warn", eff.LogLevel)
}

func TestLoadOverridesEmptyValueIsPresent(t *testing.T) {
	t.Setenv("SATCHEL_ENTRY_POINT", "")

	o := LoadOverridesOrEmpty()
	require.NotNil(t, o.EntryPoint)
	assert.Equal(t, "", *o.EntryPoint)
}

func TestExpandRoot(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	assert.Equal(t, "/home/tester/cache", expandRoot("~/cache"))
	assert.Equal(t, "relative", expandRoot("relative"))
	assert.Equal(t, "~user", expandRoot("~user"))
}

func TestUsage(t *testing.T) {
	assert.Contains(t, Usage(), "SATCHEL_FORCE_EXTRACT")
}
