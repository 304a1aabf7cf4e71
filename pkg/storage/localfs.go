package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashmap-kz/gzdec/pkg/common"
	"github.com/hashmap-kz/gzdec/pkg/fsync"
)

type localStorage struct {
	baseDir      string
	fsyncOnWrite bool
}

type LocalStorageOpts struct {
	BaseDir      string
	FsyncOnWrite bool
}

var _ Storage = &localStorage{}

func NewLocal(o *LocalStorageOpts) (Storage, error) {
	if err := os.MkdirAll(o.BaseDir, common.DirPerm); err != nil {
		return nil, err
	}
	return &localStorage{baseDir: o.BaseDir, fsyncOnWrite: o.FsyncOnWrite}, nil
}

func (l *localStorage) fullPath(path string) string {
	return filepath.ToSlash(filepath.Join(l.baseDir, filepath.Clean(path)))
}

// PutObject writes into a temporary sibling and renames it in place, so readers
// never see a partially decoded object.
func (l *localStorage) PutObject(_ context.Context, path string, r io.Reader) error {
	fullPath := l.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), common.DirPerm); err != nil {
		return err
	}
	_, err := fsync.WriteFileAtomic(fullPath, r, l.fsyncOnWrite)
	return err
}

func (l *localStorage) ReadObject(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(l.fullPath(path))
}

func (l *localStorage) Exists(_ context.Context, path string) (bool, error) {
	fullPath := l.fullPath(path)

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if info.Mode().IsRegular() {
		return true, nil
	}
	return false, nil
}

func (l *localStorage) SHA256(_ context.Context, path string) (string, error) {
	fullPath := l.fullPath(path)
	return common.Sha256FromFile(fullPath)
}

func (l *localStorage) ListAll(_ context.Context, prefix string) ([]string, error) {
	fullPath := l.fullPath(prefix)
	var result []string

	err := filepath.WalkDir(fullPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == fullPath && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return fmt.Errorf("error accessing path %q: %w", path, err)
		}
		if d.IsDir() || fsync.IsTempName(path) {
			return nil
		}
		rel, err := filepath.Rel(l.baseDir, path)
		if err != nil {
			return err
		}
		result = append(result, filepath.ToSlash(rel))
		return nil
	})
	return result, err
}

func (l *localStorage) Remove(_ context.Context, path string) error {
	err := os.Remove(l.fullPath(path))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
