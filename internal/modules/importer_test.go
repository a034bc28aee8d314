package modules

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/GriffinCanCode/satchel/internal/compile"
	"github.com/GriffinCanCode/satchel/internal/sitepath"
	"github.com/GriffinCanCode/satchel/internal/testutil"
	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImporter(t *testing.T, files map[string]string, executable ...string) (*Importer, *bytes.Buffer, string) {
	t.Helper()
	dir := testutil.WriteTree(t, t.TempDir(), files, executable...)
	var out bytes.Buffer
	imp := NewImporter(Options{
		Path:   sitepath.New([]string{dir}),
		Stdout: &out,
		Stderr: &out,
	})
	return imp, &out, dir
}

func TestImportNativeModule(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("pkg.mod", Namespace{"answer": 42})

	imp := NewImporter(Options{Registry: reg, Path: sitepath.New(nil)})

	m, err := imp.Import("pkg.mod")
	require.NoError(t, err)
	assert.Equal(t, KindNative, m.Kind)

	v, ok := m.Attr("answer")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	again, err := imp.Import("pkg/mod")
	require.NoError(t, err)
	assert.Same(t, m, again)
}

func TestImportScriptModule(t *testing.T) {
	imp, _, dir := newImporter(t, map[string]string{
		"pkg/mod.js": "exports.name = 'mod'; exports.file = __filename;",
	})

	m, err := imp.Import("pkg.mod")
	require.NoError(t, err)
	assert.Equal(t, KindScript, m.Kind)
	assert.Equal(t, filepath.Join(dir, "pkg", "mod.js"), m.Path)

	v, ok := m.Attr("name")
	require.True(t, ok)
	assert.Equal(t, "mod", v.(goja.Value).String())
}

func TestImportIndexModule(t *testing.T) {
	imp, _, _ := newImporter(t, map[string]string{
		"pkg/index.js": "module.exports = { kind: 'index' };",
	})

	m, err := imp.Import("pkg")
	require.NoError(t, err)
	v, ok := m.Attr("kind")
	require.True(t, ok)
	assert.Equal(t, "index", v.(goja.Value).String())
}

func TestImportRunsBodyOnce(t *testing.T) {
	imp, _, _ := newImporter(t, map[string]string{
		"counter.js": "globalThis.loads = (globalThis.loads || 0) + 1;",
		"user.js":    "require('counter'); require('./counter');",
	})

	_, err := imp.Import("counter")
	require.NoError(t, err)
	_, err = imp.Import("user")
	require.NoError(t, err)
	_, err = imp.Import("counter")
	require.NoError(t, err)

	assert.Equal(t, int64(1), imp.Runtime().Get("loads").ToInteger())
}

func TestImportSearchPathOrder(t *testing.T) {
	first := testutil.WriteTree(t, t.TempDir(), map[string]string{"mod.js": "exports.from = 'first';"})
	second := testutil.WriteTree(t, t.TempDir(), map[string]string{"mod.js": "exports.from = 'second';"})

	imp := NewImporter(Options{Path: sitepath.New([]string{first, second})})

	m, err := imp.Import("mod")
	require.NoError(t, err)
	v, _ := m.Attr("from")
	assert.Equal(t, "first", v.(goja.Value).String())
}

func TestImportNotFound(t *testing.T) {
	imp, _, _ := newImporter(t, map[string]string{"other.js": ""})

	_, err := imp.Import("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = imp.Import("bad name")
	assert.Error(t, err)
}

func TestImportScriptFailureIsNotCached(t *testing.T) {
	imp, _, _ := newImporter(t, map[string]string{
		"broken.js": "throw new Error('boom');",
	})

	_, err := imp.Import("broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, ok := imp.Loaded("broken")
	assert.False(t, ok)
}

func TestRequireNativeFromScript(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("host", Namespace{"greet": func(name string) string { return "hello " + name }})

	dir := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"app.js":      "const h = require('host'); const u = require('./lib/util'); exports.msg = u.shout(h.greet('x'));",
		"lib/util.js": "exports.shout = function(s) { return s.toUpperCase(); };",
	})
	imp := NewImporter(Options{Registry: reg, Path: sitepath.New([]string{dir})})

	m, err := imp.Import("app")
	require.NoError(t, err)
	v, _ := m.Attr("msg")
	assert.Equal(t, "HELLO X", v.(goja.Value).String())
}

func TestConsoleWritesToStdout(t *testing.T) {
	imp, out, _ := newImporter(t, map[string]string{
		"hello.js": "console.log('hello', 1, true);",
	})

	_, err := imp.Import("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello 1 true\n", out.String())
}

func TestImportPrefersFreshSidecar(t *testing.T) {
	imp, _, dir := newImporter(t, map[string]string{
		"mod.js": "exports.v = 'source';",
	})
	src := filepath.Join(dir, "mod.js")

	c := compile.NewScriptCompiler()
	require.NoError(t, c.Compile(context.Background(), src))

	// rewrite the compiled body but keep its header so it is still fresh
	sidecar := compile.SidecarPath(src)
	data, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	patched := strings.Replace(string(data), "'source'", "'sidecar'", 1)
	require.NoError(t, os.WriteFile(sidecar, []byte(patched), 0o644))

	m, err := imp.Import("mod")
	require.NoError(t, err)
	v, _ := m.Attr("v")
	assert.Equal(t, "sidecar", v.(goja.Value).String())
}

func TestImportIgnoresStaleSidecar(t *testing.T) {
	imp, _, dir := newImporter(t, map[string]string{
		"mod.js": "exports.v = 'old';",
	})
	src := filepath.Join(dir, "mod.js")
	require.NoError(t, compile.NewScriptCompiler().Compile(context.Background(), src))
	require.NoError(t, os.WriteFile(src, []byte("exports.v = 'new';"), 0o644))

	m, err := imp.Import("mod")
	require.NoError(t, err)
	v, _ := m.Attr("v")
	assert.Equal(t, "new", v.(goja.Value).String())
}

func TestImportCommandModule(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	imp, out, _ := newImporter(t, map[string]string{
		"bin/tool": "#!/bin/sh\necho \"tool $1\"\nexit 3\n",
		"bin/data": "not executable",
	}, "bin/tool")

	m, err := imp.Import("bin.tool")
	require.NoError(t, err)
	assert.Equal(t, KindCommand, m.Kind)

	code, err := imp.Call(context.Background(), m, []string{"arg"})
	assert.Equal(t, 3, code)

	var exit *ExitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 3, exit.Code)
	assert.Equal(t, "tool arg\n", out.String())

	_, err = imp.Import("bin.data")
	assert.ErrorIs(t, err, ErrNotFound)
}
