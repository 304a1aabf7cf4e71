package fsync

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

const tempSuffix = ".part"

// WriteFileAtomic copies r into a hidden temporary sibling of path and renames it
// into place once the copy is complete. On any error the temporary file is removed
// and path is left untouched. With durable set, the file and its directory are
// fsynced before returning.
func WriteFileAtomic(path string, r io.Reader, durable bool) (int64, error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*"+tempSuffix)
	if err != nil {
		return 0, err
	}
	tmpName := f.Name()
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpName)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		cleanup()
		return n, err
	}
	if durable {
		if err := Fsync(f); err != nil {
			cleanup()
			return n, err
		}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return n, err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return n, err
	}
	if durable {
		return n, FsyncDir(dir)
	}
	return n, nil
}

// IsTempName reports whether name looks like an in-flight WriteFileAtomic file.
func IsTempName(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") && strings.HasSuffix(base, tempSuffix)
}
