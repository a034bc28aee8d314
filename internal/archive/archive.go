package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/GriffinCanCode/satchel/internal/shared/paths"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
)

// ErrNotArchive is returned when a file is not a readable zip container.
// It is an expected outcome, not a failure.
var ErrNotArchive = errors.New("not an archive")

// MaxManifestSize bounds the manifest record read into memory
const MaxManifestSize = 1 << 20

// executable is swapped by tests
var executable = os.Executable

// Handle is an opened archive. It is never mutated after Open.
type Handle struct {
	OriginPath string
	Entries    []string

	file   *os.File
	reader *zip.Reader
	index  map[string]*zip.File
}

// Record is a named record read from the archive
type Record struct {
	Name string
	Data []byte
}

// Current opens the running executable as an archive. It returns
// ErrNotArchive when the executable cannot be located or is not a zip
// container, e.g. when the bootstrap binary is run on its own.
func Current() (*Handle, error) {
	exe, err := executable()
	if err != nil {
		return nil, fmt.Errorf("%w: locate executable: %v", ErrNotArchive, err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return Open(exe)
}

// Open opens path as an archive. Detection relies on the zip central
// directory only; the file name is never consulted. Leading bytes before the
// container (the bootstrap executable itself) are allowed.
func Open(path string) (*Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArchive, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotArchive, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrNotArchive, path)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrNotArchive, path, err)
	}
	registerDecompressors(zr)

	h := &Handle{
		OriginPath: path,
		Entries:    make([]string, 0, len(zr.File)),
		file:       f,
		reader:     zr,
		index:      make(map[string]*zip.File, len(zr.File)),
	}
	for _, zf := range zr.File {
		h.Entries = append(h.Entries, zf.Name)
		h.index[zf.Name] = zf
	}

	return h, nil
}

// registerDecompressors swaps in klauspost's faster deflate and adds zstd.
func registerDecompressors(zr *zip.Reader) {
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
}

// Close releases the underlying file
func (h *Handle) Close() error {
	if h == nil || h.file == nil {
		return nil
	}
	return h.file.Close()
}

// Name returns the archive base name used in cache keys
func (h *Handle) Name() string {
	return filepath.Base(h.OriginPath)
}

// Has reports whether a record exists
func (h *Handle) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// File returns the zip record for name
func (h *Handle) File(name string) (*zip.File, bool) {
	zf, ok := h.index[name]
	return zf, ok
}

// PayloadFiles returns the records under the payload prefix in archive order
func (h *Handle) PayloadFiles() []*zip.File {
	var out []*zip.File
	for _, zf := range h.reader.File {
		if _, ok := paths.PayloadRelative(zf.Name); ok {
			out = append(out, zf)
		}
	}
	return out
}

// PayloadSize returns the uncompressed size of the payload
func (h *Handle) PayloadSize() uint64 {
	var total uint64
	for _, zf := range h.PayloadFiles() {
		total += zf.UncompressedSize64
	}
	return total
}

// ReadRecord reads a record fully, refusing anything larger than limit
func (h *Handle) ReadRecord(name string, limit int64) ([]byte, error) {
	zf, ok := h.index[name]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", name, os.ErrNotExist)
	}
	if zf.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("record %s: %d bytes exceeds limit %d", name, zf.UncompressedSize64, limit)
	}

	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("open record %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("record %s exceeds limit %d", name, limit)
	}
	return data, nil
}

// Manifest returns the first manifest record present. ok is false when the
// archive carries no manifest; the caller falls back to defaults.
func (h *Handle) Manifest() (rec Record, ok bool, err error) {
	for _, name := range paths.ManifestRecords() {
		if !h.Has(name) {
			continue
		}
		data, err := h.ReadRecord(name, MaxManifestSize)
		if err != nil {
			return Record{Name: name}, true, err
		}
		return Record{Name: name, Data: data}, true, nil
	}
	return Record{}, false, nil
}

// SortedEntries returns a sorted copy of the record names
func (h *Handle) SortedEntries() []string {
	out := append([]string(nil), h.Entries...)
	sort.Strings(out)
	return out
}
