package pack

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/satchel/internal/config"
	"github.com/GriffinCanCode/satchel/internal/shared/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func openZip(t *testing.T, path string) *zip.ReadCloser {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { zr.Close() })
	return zr
}

func names(zr *zip.ReadCloser) []string {
	var out []string
	for _, f := range zr.File {
		out = append(out, f.Name)
	}
	return out
}

func TestBuildLayout(t *testing.T) {
	payload := writeFiles(t, map[string]string{
		"hello/index.js": "exports.main = function() {}",
		"hello/data.txt": "data",
	})
	out := filepath.Join(t.TempDir(), "app")

	res, err := Build(context.Background(), Options{
		Output:     out,
		Header:     Shebang,
		PayloadDir: payload,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Files)
	assert.True(t, res.BuildID.IsUUID())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, Shebang))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	zr := openZip(t, out)
	got := names(zr)
	assert.Equal(t, "environment.json", got[0])
	assert.Contains(t, got, "site-packages/hello/")
	assert.Contains(t, got, "site-packages/hello/index.js")
	assert.Contains(t, got, "site-packages/hello/data.txt")
}

func TestBuildExcludes(t *testing.T) {
	payload := writeFiles(t, map[string]string{
		"mod/a.js":          "a",
		"mod/a.js.map":      "map",
		"mod/cache/blob.js": "blob",
	})
	out := filepath.Join(t.TempDir(), "app")

	_, err := Build(context.Background(), Options{
		Output:     out,
		PayloadDir: payload,
		Exclude:    []string{"**/*.map", "**/cache"},
	})
	require.NoError(t, err)

	got := names(openZip(t, out))
	assert.Contains(t, got, "site-packages/mod/a.js")
	assert.NotContains(t, got, "site-packages/mod/a.js.map")
	assert.NotContains(t, got, "site-packages/mod/cache/blob.js")
}

func TestBuildContentIdentityIsStable(t *testing.T) {
	payload := writeFiles(t, map[string]string{"m/a.js": "a", "m/b.js": "b"})
	dir := t.TempDir()

	first, err := Build(context.Background(), Options{Output: filepath.Join(dir, "one"), PayloadDir: payload, ContentIdentity: true})
	require.NoError(t, err)
	second, err := Build(context.Background(), Options{Output: filepath.Join(dir, "two"), PayloadDir: payload, ContentIdentity: true})
	require.NoError(t, err)

	assert.Equal(t, first.BuildID, second.BuildID)
	assert.False(t, first.BuildID.IsUUID())

	require.NoError(t, os.WriteFile(filepath.Join(payload, "m", "b.js"), []byte("changed"), 0o644))
	third, err := Build(context.Background(), Options{Output: filepath.Join(dir, "three"), PayloadDir: payload, ContentIdentity: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.BuildID, third.BuildID)
}

func TestBuildManifestFormats(t *testing.T) {
	ep := "hello:main"
	for _, format := range []string{config.FormatJSON, config.FormatTOML, config.FormatYAML} {
		t.Run(format, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "app")
			res, err := Build(context.Background(), Options{
				Output:   out,
				Format:   format,
				Manifest: config.Manifest{BuildID: "fixed", EntryPoint: &ep},
			})
			require.NoError(t, err)
			assert.Equal(t, id.BuildID("fixed"), res.BuildID)

			record, err := config.RecordName(format)
			require.NoError(t, err)
			assert.Contains(t, names(openZip(t, out)), record)
		})
	}
}

func TestBuildZstd(t *testing.T) {
	payload := writeFiles(t, map[string]string{"m/a.js": "compressed with zstd"})
	out := filepath.Join(t.TempDir(), "app")

	_, err := Build(context.Background(), Options{Output: out, PayloadDir: payload, Compression: Zstd})
	require.NoError(t, err)

	zr := openZip(t, out)
	for _, f := range zr.File {
		if f.Name == "site-packages/m/a.js" {
			assert.Equal(t, uint16(93), f.Method)
		}
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	_, err := Build(context.Background(), Options{})
	assert.Error(t, err)

	_, err = Build(context.Background(), Options{Output: filepath.Join(t.TempDir(), "a"), Exclude: []string{"[unclosed"}})
	assert.Error(t, err)

	_, err = Build(context.Background(), Options{Output: filepath.Join(t.TempDir(), "a"), Manifest: config.Manifest{BuildID: "a/b"}})
	assert.Error(t, err)

	_, err = Build(context.Background(), Options{Output: filepath.Join(t.TempDir(), "a"), Compression: "lz4"})
	assert.Error(t, err)
}

func TestBuildDetectExecutables(t *testing.T) {
	elf := append([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1}, make([]byte, 57)...)
	payload := writeFiles(t, map[string]string{
		"bin/tool":   "#!/bin/sh\necho tool\n",
		"bin/run.py": "#!/usr/bin/env python3\nprint(1)\n",
		"bin/elf":    string(elf),
		"bin/short":  "#",
		"lib/mod.js": "exports.x = 1;",
		"data.txt":   "plain text",
	})
	out := filepath.Join(t.TempDir(), "app")

	_, err := Build(context.Background(), Options{Output: out, Header: Shebang, PayloadDir: payload, DetectExecutables: true})
	require.NoError(t, err)

	modes := map[string]os.FileMode{}
	for _, f := range openZip(t, out).File {
		modes[f.Name] = f.Mode().Perm()
	}
	assert.NotZero(t, modes["site-packages/bin/tool"]&0o100)
	assert.NotZero(t, modes["site-packages/bin/run.py"]&0o100)
	assert.NotZero(t, modes["site-packages/bin/elf"]&0o100)
	assert.Zero(t, modes["site-packages/bin/short"]&0o100)
	assert.Zero(t, modes["site-packages/lib/mod.js"]&0o100)
	assert.Zero(t, modes["site-packages/data.txt"]&0o100)
}
