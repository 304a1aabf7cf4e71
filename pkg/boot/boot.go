package boot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/hashmap-kz/gzdec/config"
	"github.com/hashmap-kz/gzdec/pkg/crypt"
	"github.com/hashmap-kz/gzdec/pkg/crypt/aesgcm"
	"github.com/hashmap-kz/gzdec/pkg/repo"
	"github.com/hashmap-kz/gzdec/pkg/s3x"
	"github.com/hashmap-kz/gzdec/pkg/sftpx"
	"github.com/hashmap-kz/gzdec/pkg/storage"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// DecideRepo inits the repository with storage and encryption assigned according to configs.
// The returned closer releases network connections held by the storage.
func DecideRepo(ctx context.Context, cfg *config.Config) (repo.Repository, io.Closer, error) {
	s, closer, err := decideStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	crypter, err := decideCrypter(cfg)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return repo.New(s, crypter, cfg.OutputPrefix), closer, nil
}

func decideStorage(ctx context.Context, cfg *config.Config) (storage.Storage, io.Closer, error) {
	baseDir := filepath.ToSlash(cfg.RepoPath)

	switch cfg.RepoType {
	// local
	case config.RepoTypeLocal:
		slog.Info("init local storage",
			slog.String("module", "boot"),
			slog.String("location", baseDir),
		)
		local, err := storage.NewLocal(&storage.LocalStorageOpts{
			BaseDir:      baseDir,
			FsyncOnWrite: cfg.FsyncOnWrite,
		})
		if err != nil {
			return nil, nil, err
		}
		return local, nopCloser{}, nil

		// sftp
	case config.RepoTypeSFTP:
		slog.Info("init SFTP storage",
			slog.String("module", "boot"),
			slog.String("host", cfg.RepoStorageSFTPHost),
			slog.String("location", baseDir),
		)
		c, err := sftpx.NewSFTPClient(&sftpx.SFTPConfig{
			Host:       cfg.RepoStorageSFTPHost,
			Port:       cfg.RepoStorageSFTPPort,
			User:       cfg.RepoStorageSFTPUser,
			PkeyPath:   cfg.RepoStorageSFTPPrivateKeyPath,
			Password:   cfg.RepoStorageSFTPPass,
			Passphrase: cfg.RepoStorageSFTPPrivateKeyPassphrase,
		})
		if err != nil {
			return nil, nil, err
		}
		return storage.NewSFTPStorage(c.SFTPClient(), baseDir), c, nil

		// s3
	case config.RepoTypeS3:
		slog.Info("init s3 storage",
			slog.String("module", "boot"),
			slog.String("bucket", cfg.RepoStorageS3Bucket),
			slog.String("location", baseDir),
		)
		c, err := s3x.NewS3Client(ctx, &s3x.S3Config{
			EndpointURL:     cfg.RepoStorageS3URL,
			AccessKeyID:     cfg.RepoStorageS3AccessKeyID,
			SecretAccessKey: cfg.RepoStorageS3SecretAccessKey,
			Bucket:          cfg.RepoStorageS3Bucket,
			Region:          cfg.RepoStorageS3Region,
			UsePathStyle:    cfg.RepoStorageS3UsePathStyle,
			DisableSSL:      cfg.RepoStorageS3DisableSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return storage.NewS3Storage(&storage.S3StorageOpts{
			Client:      c.Client(),
			Bucket:      c.Bucket(),
			Prefix:      baseDir,
			Concurrency: cfg.Jobs,
		}), nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unimplemented repo type: %s", cfg.RepoType)
	}
}

func decideCrypter(cfg *config.Config) (crypt.Crypter, error) {
	if cfg.RepoEncryptor == "" {
		return nil, nil
	}
	slog.Info("init crypter",
		slog.String("module", "boot"),
		slog.String("crypter", string(cfg.RepoEncryptor)),
	)
	if cfg.RepoEncryptor != config.RepoEncryptorAes256Gcm {
		return nil, fmt.Errorf("unknown encryptor: %s", cfg.RepoEncryptor)
	}
	return aesgcm.NewChunkedGCMCrypter(cfg.RepoEncryptionPass), nil
}
