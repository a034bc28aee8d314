package pack

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/satchel/internal/config"
	"github.com/GriffinCanCode/satchel/internal/shared/id"
	"github.com/GriffinCanCode/satchel/internal/shared/paths"
	"github.com/GriffinCanCode/satchel/internal/shared/utils"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the zip method for stored records
type Compression string

const (
	Deflate Compression = "deflate"
	Store   Compression = "store"
	Zstd    Compression = "zstd"
)

func (c Compression) method() (uint16, error) {
	switch c {
	case "", Deflate:
		return zip.Deflate, nil
	case Store:
		return zip.Store, nil
	case Zstd:
		return zstd.ZipMethodWinZip, nil
	}
	return 0, fmt.Errorf("unknown compression %q", c)
}

// Shebang is a minimal header for archives that are not prefixed with a
// bootstrap executable. Such archives are valid containers but not
// self-launching.
var Shebang = []byte("#!/usr/bin/env satchel\n")

// Options controls archive assembly
type Options struct {
	// Output is the archive path
	Output string
	// Header is written before the container, usually the bootstrap binary
	Header []byte
	// HeaderPath reads the header from a file; ignored when Header is set
	HeaderPath string
	// PayloadDir is stored under the payload prefix; may be empty
	PayloadDir string
	// Manifest is embedded as the persisted configuration layer
	Manifest config.Manifest
	// Format selects the manifest encoding; defaults to JSON
	Format string
	// Compression defaults to Deflate
	Compression Compression
	// Exclude lists doublestar patterns relative to PayloadDir
	Exclude []string
	// ContentIdentity derives the build id from the payload when the manifest has none
	ContentIdentity bool
	// Records adds raw records outside the payload
	Records map[string][]byte
	// DetectExecutables marks payload files that look like programs as
	// executable even when the source tree lost their mode bits
	DetectExecutables bool
	// Modified stamps every record; zero means time.Now
	Modified time.Time
}

// Result describes a written archive
type Result struct {
	Path    string
	BuildID id.BuildID
	Files   int
	Size    int64
}

type payloadFile struct {
	rel  string
	abs  string
	mode fs.FileMode
	dir  bool
}

// Build writes an archive. The output appears atomically: it is written to a
// sibling temp file and renamed into place.
func Build(ctx context.Context, opts Options) (*Result, error) {
	if opts.Output == "" {
		return nil, fmt.Errorf("output path required")
	}
	if opts.Format == "" {
		opts.Format = config.FormatJSON
	}
	method, err := opts.Compression.method()
	if err != nil {
		return nil, err
	}
	if opts.Modified.IsZero() {
		opts.Modified = time.Now()
	}
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	header := opts.Header
	if header == nil && opts.HeaderPath != "" {
		data, err := os.ReadFile(opts.HeaderPath)
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		header = data
	}

	files, err := collectPayload(ctx, opts.PayloadDir, opts.Exclude)
	if err != nil {
		return nil, err
	}
	if opts.DetectExecutables {
		markExecutables(files)
	}

	manifest := opts.Manifest
	if manifest.BuildID == "" {
		if opts.ContentIdentity {
			digest, err := digestPayload(files)
			if err != nil {
				return nil, err
			}
			manifest.BuildID = id.ContentBuildID(digest).String()
		} else {
			manifest.BuildID = id.NewBuildID().String()
		}
	}
	if err := id.BuildID(manifest.BuildID).Validate(); err != nil {
		return nil, err
	}

	manifestData, err := manifest.Encode(opts.Format)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	manifestName, err := config.RecordName(opts.Format)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(opts.Output)
	tmp, err := os.CreateTemp(dir, filepath.Base(opts.Output)+".tmp.*")
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	zw := zip.NewWriter(tmp)
	zw.SetOffset(int64(len(header)))
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())

	if err := writeRecord(zw, manifestName, manifestData, method, opts.Modified); err != nil {
		return nil, err
	}

	extra := make([]string, 0, len(opts.Records))
	for name := range opts.Records {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		if err := writeRecord(zw, name, opts.Records[name], method, opts.Modified); err != nil {
			return nil, err
		}
	}

	count := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := writePayloadFile(zw, f, method, opts.Modified); err != nil {
			return nil, err
		}
		if !f.dir {
			count++
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		return nil, fmt.Errorf("chmod archive: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmpName, opts.Output); err != nil {
		return nil, fmt.Errorf("replace archive: %w", err)
	}
	committed = true

	return &Result{
		Path:    opts.Output,
		BuildID: id.BuildID(manifest.BuildID),
		Files:   count,
		Size:    info.Size(),
	}, nil
}

func collectPayload(ctx context.Context, root string, exclude []string) ([]payloadFile, error) {
	if root == "" {
		return nil, nil
	}
	root = filepath.Clean(root)

	var (
		mu    sync.Mutex
		files []payloadFile
	)
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		for _, pattern := range exclude {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() && !info.Mode().IsRegular() {
			return nil
		}
		if info.IsDir() && d.Type()&fs.ModeSymlink != 0 {
			// do not descend into linked directories
			return nil
		}

		mu.Lock()
		files = append(files, payloadFile{rel: rel, abs: path, mode: info.Mode(), dir: info.IsDir()})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk payload: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}

func digestPayload(files []payloadFile) (string, error) {
	digest := utils.DefaultHasher().NewTreeDigest()
	for _, f := range files {
		if f.dir {
			continue
		}
		r, err := os.Open(f.abs)
		if err != nil {
			return "", fmt.Errorf("hash payload: %w", err)
		}
		err = digest.Add(f.rel, r)
		r.Close()
		if err != nil {
			return "", fmt.Errorf("hash payload: %w", err)
		}
	}
	return digest.Sum(), nil
}

func writeRecord(zw *zip.Writer, name string, data []byte, method uint16, modified time.Time) error {
	fh := &zip.FileHeader{Name: name, Method: method, Modified: modified}
	fh.SetMode(0o644)
	w, err := zw.CreateHeader(fh)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func writePayloadFile(zw *zip.Writer, f payloadFile, method uint16, modified time.Time) error {
	name := paths.PayloadPrefix + f.rel
	if f.dir {
		fh := &zip.FileHeader{Name: strings.TrimSuffix(name, "/") + "/", Modified: modified}
		fh.SetMode(f.mode)
		_, err := zw.CreateHeader(fh)
		return err
	}

	fh := &zip.FileHeader{Name: name, Method: method, Modified: modified}
	fh.SetMode(f.mode)
	w, err := zw.CreateHeader(fh)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}

	src, err := os.Open(f.abs)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.abs, err)
	}
	defer src.Close()

	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
