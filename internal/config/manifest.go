package config

import (
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"strconv"

	"github.com/GriffinCanCode/satchel/internal/shared/paths"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Manifest keys. This is the complete set the assembler may write.
const (
	KeyBuildID          = "build_id"
	KeyEntryPoint       = "entry_point"
	KeyAlwaysWriteCache = "always_write_cache"
	KeyCompilePyc       = "compile_pyc"
	KeyCompileWorkers   = "compile_workers"
	KeyRoot             = "root"
	KeyAppendSearchPath = "append_search_path"
)

// Manifest formats
const (
	FormatJSON = "json"
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// Manifest is the persisted layer. Nil fields were absent from the record.
type Manifest struct {
	BuildID          string
	EntryPoint       *string
	AlwaysWriteCache *bool
	CompileScripts   *bool
	CompileWorkers   *int
	Root             *string
	AppendSearchPath *bool
}

// FormatOf maps a manifest record name to its format
func FormatOf(record string) (string, bool) {
	switch path.Base(record) {
	case paths.ManifestJSON:
		return FormatJSON, true
	case paths.ManifestTOML:
		return FormatTOML, true
	case paths.ManifestYAML:
		return FormatYAML, true
	}
	return "", false
}

// DecodeManifest parses a manifest record. It always returns a usable
// manifest: keys that cannot be read are left absent and reported in err.
func DecodeManifest(record string, data []byte) (Manifest, error) {
	format, ok := FormatOf(record)
	if !ok {
		return Manifest{}, &ConfigurationError{Layer: "manifest", Key: "record", Value: record, Err: errors.New("unknown manifest format")}
	}

	raw := map[string]interface{}{}
	var err error
	switch format {
	case FormatJSON:
		err = sonic.Unmarshal(data, &raw)
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return Manifest{}, &ConfigurationError{Layer: "manifest", Key: "record", Value: record, Err: err}
	}

	return manifestFromMap(raw)
}

func manifestFromMap(raw map[string]interface{}) (Manifest, error) {
	var m Manifest
	var errs []error

	bad := func(key string, v interface{}, err error) {
		errs = append(errs, &ConfigurationError{Layer: "manifest", Key: key, Value: fmt.Sprint(v), Err: err})
	}

	if v, ok := raw[KeyBuildID]; ok && v != nil {
		if s, err := asString(v); err != nil {
			bad(KeyBuildID, v, err)
		} else {
			m.BuildID = s
		}
	}
	if v, ok := raw[KeyEntryPoint]; ok && v != nil {
		if s, err := asString(v); err != nil {
			bad(KeyEntryPoint, v, err)
		} else {
			m.EntryPoint = &s
		}
	}
	if v, ok := raw[KeyRoot]; ok && v != nil {
		if s, err := asString(v); err != nil {
			bad(KeyRoot, v, err)
		} else {
			m.Root = &s
		}
	}
	for key, dst := range map[string]**bool{
		KeyAlwaysWriteCache: &m.AlwaysWriteCache,
		KeyCompilePyc:       &m.CompileScripts,
		KeyAppendSearchPath: &m.AppendSearchPath,
	} {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		b, err := asBool(v)
		if err != nil {
			bad(key, v, err)
			continue
		}
		*dst = &b
	}
	if v, ok := raw[KeyCompileWorkers]; ok && v != nil {
		if n, err := asInt(v); err != nil {
			bad(KeyCompileWorkers, v, err)
		} else {
			m.CompileWorkers = &n
		}
	}

	return m, errors.Join(errs...)
}

func asString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

func asBool(v interface{}) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	}
	return false, fmt.Errorf("expected bool, got %T", v)
}

func asInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		if n > math.MaxInt32 {
			return 0, fmt.Errorf("%d out of range", n)
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

// Fields returns the manifest as a flat key/value map of present keys
func (m Manifest) Fields() map[string]interface{} {
	out := map[string]interface{}{}
	if m.BuildID != "" {
		out[KeyBuildID] = m.BuildID
	}
	if m.EntryPoint != nil {
		out[KeyEntryPoint] = *m.EntryPoint
	}
	if m.Root != nil {
		out[KeyRoot] = *m.Root
	}
	if m.AlwaysWriteCache != nil {
		out[KeyAlwaysWriteCache] = *m.AlwaysWriteCache
	}
	if m.CompileScripts != nil {
		out[KeyCompilePyc] = *m.CompileScripts
	}
	if m.CompileWorkers != nil {
		out[KeyCompileWorkers] = *m.CompileWorkers
	}
	if m.AppendSearchPath != nil {
		out[KeyAppendSearchPath] = *m.AppendSearchPath
	}
	return out
}

// Encode serializes the manifest with sorted keys.
func (m Manifest) Encode(format string) ([]byte, error) {
	fields := m.Fields()

	switch format {
	case FormatJSON:
		return sonic.ConfigStd.Marshal(fields)
	case FormatTOML:
		return toml.Marshal(fields)
	case FormatYAML:
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(yaml.MapSlice, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, yaml.MapItem{Key: k, Value: fields[k]})
		}
		return yaml.Marshal(ordered)
	}
	return nil, fmt.Errorf("unknown manifest format %q", format)
}

// RecordName returns the archive record name for a format
func RecordName(format string) (string, error) {
	switch format {
	case FormatJSON:
		return paths.ManifestJSON, nil
	case FormatTOML:
		return paths.ManifestTOML, nil
	case FormatYAML:
		return paths.ManifestYAML, nil
	}
	return "", fmt.Errorf("unknown manifest format %q", format)
}
