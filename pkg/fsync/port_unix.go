//go:build !windows
// +build !windows

package fsync

import (
	"fmt"
	"os"
	"syscall"
)

func Fsync(f *os.File) error {
	return syscall.Fsync(int(f.Fd()))
}

// FsyncDir fsyncs dir contents, making renames inside it durable.
//
//nolint:revive
func FsyncDir(dirPath string) error {
	d, err := os.Open(dirPath)
	if err != nil {
		return fmt.Errorf("cannot open dir %s: %w", dirPath, err)
	}
	if err := Fsync(d); err != nil {
		_ = d.Close()
		return fmt.Errorf("cannot fsync dir %s: %w", dirPath, err)
	}
	return d.Close()
}
