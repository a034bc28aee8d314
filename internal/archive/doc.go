// Package archive detects and opens self-contained executable archives.
//
// An archive is the bootstrap executable followed by a zip container. The
// zip central directory is located from the end of the file, so any number
// of leading bytes is tolerated. Detection never looks at the file name.
//
// Deflate records are decoded with klauspost/compress/flate; zstd records
// (zip method 93) with klauspost/compress/zstd.
//
// Example Usage:
//
//	h, err := archive.Current()
//	if errors.Is(err, archive.ErrNotArchive) {
//	    // running as a plain binary
//	}
//	defer h.Close()
package archive
