package pack

import (
	"bytes"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// executableTypes are native binary content types stored with execute permission
var executableTypes = []string{
	"application/x-elf",
	"application/x-executable",
	"application/x-sharedlib",
	"application/x-mach-binary",
	"application/vnd.microsoft.portable-executable",
}

var shebang = []byte("#!")

// markExecutables adds execute bits to files whose content is a native
// binary or an interpreter script
func markExecutables(files []payloadFile) {
	for i := range files {
		f := &files[i]
		if f.dir || f.mode.Perm()&0o111 != 0 {
			continue
		}
		if isExecutable(f.abs) {
			f.mode |= 0o111
		}
	}
}

func isExecutable(path string) bool {
	if hasShebang(path) {
		return true
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for m := mtype; m != nil; m = m.Parent() {
		if mimetype.EqualsAny(m.String(), executableTypes...) {
			return true
		}
	}
	return false
}

// hasShebang reports whether the file starts with "#!". mimetype reports
// shell scripts as text/plain, so interpreter scripts are recognised here.
func hasShebang(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, len(shebang))
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, shebang)
}
