package storage

import (
	"context"
	"io"
)

// Storage is a flat object namespace with slash-separated relative paths.
type Storage interface {
	PutObject(ctx context.Context, path string, r io.Reader) error

	ReadObject(ctx context.Context, path string) (io.ReadCloser, error)

	Exists(ctx context.Context, path string) (bool, error)

	SHA256(ctx context.Context, path string) (string, error)

	ListAll(ctx context.Context, prefix string) ([]string, error)

	Remove(ctx context.Context, path string) error
}
