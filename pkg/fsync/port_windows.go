//go:build windows
// +build windows

package fsync

import (
	"os"
	"syscall"
)

//nolint:revive
func Fsync(f *os.File) error {
	return syscall.FlushFileBuffers(syscall.Handle(f.Fd()))
}

// FsyncDir is a no-op, directories cannot be flushed on windows.
//
//nolint:revive
func FsyncDir(_ string) error {
	return nil
}
