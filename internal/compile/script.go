package compile

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/satchel/internal/shared/utils"
	"github.com/dop251/goja"
)

// SidecarExt is appended to a source unit's path for its compiled form
const SidecarExt = "c"

const (
	wrapperHead  = "(function(exports, require, module, __filename, __dirname) {"
	wrapperTail  = "\n})"
	sidecarMagic = "//satchel-compiled "
)

// Wrap returns the module function source for a script unit
func Wrap(src []byte) string {
	var b strings.Builder
	b.Grow(len(wrapperHead) + len(src) + len(wrapperTail))
	b.WriteString(wrapperHead)
	b.Write(src)
	b.WriteString(wrapperTail)
	return b.String()
}

// SidecarPath returns where the compiled form of path is stored
func SidecarPath(path string) string {
	return path + SidecarExt
}

// ScriptCompiler validates script units with goja and stores the wrapped
// module source next to them. The sidecar records a digest of the source so
// stale sidecars are ignored.
type ScriptCompiler struct {
	Hasher *utils.Hasher
}

// NewScriptCompiler returns a compiler using the default hasher
func NewScriptCompiler() *ScriptCompiler {
	return &ScriptCompiler{Hasher: utils.DefaultHasher()}
}

// Compile implements Compiler
func (s *ScriptCompiler) Compile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	wrapped := Wrap(src)
	if _, err := goja.Compile(path, wrapped, false); err != nil {
		return &UnitError{Path: path, Err: err}
	}

	var buf bytes.Buffer
	buf.WriteString(sidecarMagic)
	buf.WriteString(s.hasher().Hash(src))
	buf.WriteByte('\n')
	buf.WriteString(wrapped)

	return writeAtomic(SidecarPath(path), buf.Bytes())
}

// Load returns the wrapped source from a fresh sidecar. ok is false when no
// sidecar exists or it was produced from different source.
func (s *ScriptCompiler) Load(path string, src []byte) (wrapped string, ok bool) {
	data, err := os.ReadFile(SidecarPath(path))
	if err != nil {
		return "", false
	}
	if !bytes.HasPrefix(data, []byte(sidecarMagic)) {
		return "", false
	}
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 {
		return "", false
	}
	digest := string(data[len(sidecarMagic):nl])
	if digest != s.hasher().Hash(src) {
		return "", false
	}
	return string(data[nl+1:]), true
}

func (s *ScriptCompiler) hasher() *utils.Hasher {
	if s.Hasher == nil {
		return utils.DefaultHasher()
	}
	return s.Hasher
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
