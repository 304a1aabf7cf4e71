//go:build integration

package integration

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/gzdec/pkg/s3x"
	"github.com/hashmap-kz/gzdec/pkg/sftpx"
	"github.com/hashmap-kz/gzdec/pkg/storage"
)

const (
	pkeyPath   = "./environ/files/dotfiles/.ssh/id_ed25519"
	s3Bucket   = "backups"
	sftpRoot   = "/home/testuser/tests"
	minioURL   = "https://localhost:9000"
	sftpHost   = "localhost"
	sftpPort   = 2323
	sftpUser   = "testuser"
	testPrefix = "gzdec-integration"
)

func createS3Storage(t *testing.T, prefix string) (*s3.Client, storage.Storage) {
	t.Helper()
	client, err := s3x.NewS3Client(context.Background(), &s3x.S3Config{
		EndpointURL:     minioURL,
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin123",
		Bucket:          s3Bucket,
		Region:          "main",
		UsePathStyle:    true,
		DisableSSL:      true,
	})
	require.NoError(t, err)

	_, _ = client.Client().CreateBucket(context.Background(), &s3.CreateBucketInput{
		Bucket: aws.String(s3Bucket),
	})

	return client.Client(), storage.NewS3Storage(&storage.S3StorageOpts{
		Client: client.Client(),
		Bucket: s3Bucket,
		Prefix: prefix,
	})
}

func createSFTPStorage(t *testing.T, prefix string) storage.Storage {
	t.Helper()
	require.NoError(t, os.Chmod(pkeyPath, 0o600))

	client, err := sftpx.NewSFTPClient(&sftpx.SFTPConfig{
		Host:     sftpHost,
		Port:     sftpPort,
		User:     sftpUser,
		PkeyPath: pkeyPath,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return storage.NewSFTPStorage(client.SFTPClient(), prefix)
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func readAllAndClose(t *testing.T, r io.ReadCloser) []byte {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	return data
}
