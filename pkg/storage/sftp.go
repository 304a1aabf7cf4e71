package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
)

type sftpStorage struct {
	client *sftp.Client
	root   string
}

var _ Storage = &sftpStorage{}

func NewSFTPStorage(client *sftp.Client, remoteDir string) Storage {
	return &sftpStorage{
		client: client,
		root:   strings.TrimSuffix(remoteDir, "/"),
	}
}

func (s *sftpStorage) resolvePath(p string) string {
	return filepath.ToSlash(path.Join(s.root, p))
}

func (s *sftpStorage) PutObject(_ context.Context, relPath string, r io.Reader) error {
	fullPath := s.resolvePath(relPath)

	// Ensure directory exists
	dir := path.Dir(fullPath)
	if err := s.client.MkdirAll(dir); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	// write aside, then move over the target
	tmpPath := fullPath + ".part"
	f, err := s.client.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("sftp create: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.client.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = s.client.Remove(tmpPath)
		return fmt.Errorf("sftp close: %w", err)
	}
	if err := s.client.PosixRename(tmpPath, fullPath); err != nil {
		_ = s.client.Remove(tmpPath)
		return fmt.Errorf("sftp rename: %w", err)
	}
	return nil
}

func (s *sftpStorage) ReadObject(_ context.Context, relPath string) (io.ReadCloser, error) {
	fullPath := s.resolvePath(relPath)
	f, err := s.client.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("sftp open: %w", err)
	}
	return f, nil
}

func (s *sftpStorage) Exists(_ context.Context, relPath string) (bool, error) {
	fullPath := s.resolvePath(relPath)
	info, err := s.client.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (s *sftpStorage) SHA256(ctx context.Context, relPath string) (string, error) {
	rc, err := s.ReadObject(ctx, relPath)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *sftpStorage) ListAll(_ context.Context, prefix string) ([]string, error) {
	fullPath := s.fullPath(prefix)
	var result []string

	walker := s.client.Walk(fullPath)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			if walker.Path() == fullPath && os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("error walking directory: %w", err)
		}
		stat := walker.Stat()
		if stat == nil {
			continue
		}
		if stat.IsDir() {
			continue
		}
		if walker.Path() != fullPath {
			rel, err := filepath.Rel(s.root, walker.Path())
			if err != nil {
				return nil, err
			}
			result = append(result, filepath.ToSlash(rel))
		}
	}

	return result, nil
}

func (s *sftpStorage) Remove(_ context.Context, relPath string) error {
	err := s.client.Remove(s.resolvePath(relPath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("sftp remove: %w", err)
	}
	return nil
}

func (s *sftpStorage) fullPath(p string) string {
	return filepath.ToSlash(filepath.Join(s.root, filepath.Clean(p)))
}
