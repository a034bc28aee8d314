// Package testutil provides helpers for building fixture archives in tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/satchel/internal/config"
	"github.com/GriffinCanCode/satchel/internal/pack"
	"github.com/stretchr/testify/require"
)

// Fixture describes an archive to build
type Fixture struct {
	// Name is the archive base name
	Name string
	// Payload maps slash-separated relative paths to file contents
	Payload map[string]string
	// Executable lists payload paths that get mode 0755
	Executable []string
	Manifest   config.Manifest
	Format     string
	Header     []byte
}

// WriteTree writes files under dir and returns dir
func WriteTree(t *testing.T, dir string, files map[string]string, executable ...string) string {
	t.Helper()

	exec := map[string]bool{}
	for _, p := range executable {
		exec[p] = true
	}

	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

		mode := os.FileMode(0o644)
		if exec[rel] {
			mode = 0o755
		}
		require.NoError(t, os.WriteFile(path, []byte(content), mode))
	}
	return dir
}

// BuildArchive assembles a fixture archive in a temp directory
func BuildArchive(t *testing.T, f Fixture) *pack.Result {
	t.Helper()

	name := f.Name
	if name == "" {
		name = "app"
	}
	header := f.Header
	if header == nil {
		header = pack.Shebang
	}

	payload := ""
	if len(f.Payload) > 0 {
		payload = WriteTree(t, t.TempDir(), f.Payload, f.Executable...)
	}

	res, err := pack.Build(context.Background(), pack.Options{
		Output:     filepath.Join(t.TempDir(), name),
		Header:     header,
		PayloadDir: payload,
		Manifest:   f.Manifest,
		Format:     f.Format,
	})
	require.NoError(t, err)
	return res
}

// StrPtr returns a pointer to s
func StrPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool { return &b }
