package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashmap-kz/streamcrypt/pkg/ioutils"

	"github.com/hashmap-kz/gzdec/pkg/codec"
	"github.com/hashmap-kz/gzdec/pkg/crypt"
	"github.com/hashmap-kz/gzdec/pkg/element"
	"github.com/hashmap-kz/gzdec/pkg/pipe"
	"github.com/hashmap-kz/gzdec/pkg/storage"
)

const encryptedExt = ".aes"

var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrExists           = errors.New("decoded object already exists")
	ErrNoCrypter        = errors.New("object is encrypted, but no encryptor is configured")
)

// archive extensions that decode into a tarball
var tarballExts = map[string]string{
	".tgz":  ".tar",
	".tbz2": ".tar",
	".tbz":  ".tar",
}

type Repository interface {
	// OpenCompressed reads a stored object, decrypting *.aes objects on the fly.
	OpenCompressed(ctx context.Context, path string) (io.ReadCloser, error)

	// PutDecoded stores decoded bytes under the output prefix, returns the final name.
	PutDecoded(ctx context.Context, path string, r io.Reader) (string, error)

	// ListCompressed returns objects under prefix that look like gzip or bzip2 archives.
	ListCompressed(ctx context.Context, prefix string) ([]string, error)

	// DecodedName maps a compressed object name to the name of its decoded copy.
	DecodedName(path string) string

	Exists(ctx context.Context, path string) (bool, error)

	VerifySHA256(ctx context.Context, path, want string) error

	// Restore decodes one object into the output prefix.
	Restore(ctx context.Context, path string, opts RestoreOptions) (*RestoreResult, error)
}

type RestoreOptions struct {
	Force  bool // overwrite an existing decoded object
	Verify bool // re-read the stored result and compare checksums
	Decode pipe.Options
}

type RestoreResult struct {
	Source string
	Dest   string
	Format codec.Format
	Stats  element.Stats
	SHA256 string
}

type repoImpl struct {
	storage      storage.Storage // required
	crypter      crypt.Crypter   // optional
	outputPrefix string
	log          *slog.Logger
}

var _ Repository = &repoImpl{}

func New(s storage.Storage, crypter crypt.Crypter, outputPrefix string) Repository {
	return &repoImpl{
		storage:      s,
		crypter:      crypter,
		outputPrefix: filepath.ToSlash(outputPrefix),
		log:          slog.Default().With(slog.String("module", "repo")),
	}
}

func (repo *repoImpl) OpenCompressed(ctx context.Context, path string) (io.ReadCloser, error) {
	path = filepath.ToSlash(path)
	if strings.HasSuffix(path, encryptedExt) && repo.crypter == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNoCrypter)
	}

	obj, err := repo.storage.ReadObject(ctx, path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, encryptedExt) {
		return obj, nil
	}

	plain, err := repo.crypter.Decrypt(obj)
	if err != nil {
		obj.Close()
		return nil, fmt.Errorf("cannot decrypt %s: %w", path, err)
	}
	return ioutils.NewMultiCloser(plain, obj), nil
}

func (repo *repoImpl) PutDecoded(ctx context.Context, path string, r io.Reader) (string, error) {
	dest := repo.DecodedName(path)
	if err := repo.storage.PutObject(ctx, dest, r); err != nil {
		return "", err
	}
	return dest, nil
}

func (repo *repoImpl) ListCompressed(ctx context.Context, prefix string) ([]string, error) {
	all, err := repo.storage.ListAll(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, p := range all {
		p = filepath.ToSlash(p)
		// never pick up results of earlier restores
		if repo.outputPrefix != "" && strings.HasPrefix(p, repo.outputPrefix+"/") {
			continue
		}
		if IsCompressedName(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (repo *repoImpl) DecodedName(p string) string {
	return path.Join(repo.outputPrefix, StripCompressionExt(filepath.ToSlash(p)))
}

func (repo *repoImpl) Exists(ctx context.Context, path string) (bool, error) {
	return repo.storage.Exists(ctx, filepath.ToSlash(path))
}

func (repo *repoImpl) VerifySHA256(ctx context.Context, path, want string) error {
	got, err := repo.storage.SHA256(ctx, filepath.ToSlash(path))
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, want) {
		return fmt.Errorf("%w: %s: stored %s, decoded %s", ErrChecksumMismatch, path, got, want)
	}
	return nil
}

func (repo *repoImpl) Restore(ctx context.Context, path string, opts RestoreOptions) (*RestoreResult, error) {
	res := &RestoreResult{
		Source: filepath.ToSlash(path),
		Dest:   repo.DecodedName(path),
	}

	if !opts.Force {
		exists, err := repo.storage.Exists(ctx, res.Dest)
		if err != nil {
			return res, err
		}
		if exists {
			return res, fmt.Errorf("%s: %w", res.Dest, ErrExists)
		}
	}

	src, err := repo.OpenCompressed(ctx, res.Source)
	if err != nil {
		return res, err
	}
	defer src.Close()

	if opts.Decode.Name == "" {
		opts.Decode.Name = res.Source
	}
	decoded := pipe.DecodeToReader(ctx, src, opts.Decode)
	h := sha256.New()
	putErr := repo.storage.PutObject(ctx, res.Dest, io.TeeReader(decoded, h))
	_ = decoded.Close()

	out, decErr := decoded.Result()
	if out != nil {
		res.Format = out.Format
		res.Stats = out.Stats
	}
	switch {
	case putErr != nil && ctx.Err() == nil && errors.Is(decErr, context.Canceled):
		// the upload gave up first and Close stopped the decoding
		return res, fmt.Errorf("cannot store %s: %w", res.Dest, putErr)
	case decErr != nil:
		return res, fmt.Errorf("cannot decode %s: %w", res.Source, decErr)
	case putErr != nil:
		return res, fmt.Errorf("cannot store %s: %w", res.Dest, putErr)
	}
	res.SHA256 = hex.EncodeToString(h.Sum(nil))

	if opts.Verify {
		if err := repo.VerifySHA256(ctx, res.Dest, res.SHA256); err != nil {
			if rmErr := repo.storage.Remove(ctx, res.Dest); rmErr != nil {
				repo.log.Error("cannot remove unverified object",
					slog.String("path", res.Dest),
					slog.Any("err", rmErr),
				)
			}
			return res, err
		}
	}

	repo.log.Info("restored",
		slog.String("src", res.Source),
		slog.String("dst", res.Dest),
		slog.String("format", res.Format.String()),
		slog.Uint64("bytes_in", res.Stats.BytesIn),
		slog.Uint64("bytes_out", res.Stats.BytesOut),
	)
	return res, nil
}

// path-utils

// IsCompressedName reports whether the name carries a gzip or bzip2 extension,
// optionally followed by the encryption extension.
func IsCompressedName(name string) bool {
	name = strings.TrimSuffix(strings.ToLower(name), encryptedExt)
	switch filepath.Ext(name) {
	case codec.GzipFileExt, codec.Bzip2FileExt:
		return true
	}
	_, ok := tarballExts[filepath.Ext(name)]
	return ok
}

// StripCompressionExt removes the encryption and compression extensions:
// a/b.tar.gz.aes -> a/b.tar, a/b.tgz -> a/b.tar
func StripCompressionExt(name string) string {
	name = trimSuffixFold(name, encryptedExt)
	ext := filepath.Ext(name)
	lower := strings.ToLower(ext)
	if lower == codec.GzipFileExt || lower == codec.Bzip2FileExt {
		return name[:len(name)-len(ext)]
	}
	if repl, ok := tarballExts[lower]; ok {
		return name[:len(name)-len(ext)] + repl
	}
	return name
}

func trimSuffixFold(s, suffix string) string {
	if len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s[:len(s)-len(suffix)]
	}
	return s
}
