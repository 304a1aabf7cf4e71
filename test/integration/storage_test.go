//go:build integration

package integration

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/gzdec/pkg/common"
	"github.com/hashmap-kz/gzdec/pkg/storage"
)

func backends(t *testing.T) map[string]storage.Storage {
	t.Helper()
	_, s3Store := createS3Storage(t, testPrefix)
	return map[string]storage.Storage{
		"s3":   s3Store,
		"sftp": createSFTPStorage(t, sftpRoot),
	}
}

func TestStorage_PutReadRemove(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			content := []byte("integration payload")
			path := "put/" + time.Now().Format("150405.000") + ".txt"

			require.NoError(t, s.PutObject(ctx, path, bytes.NewReader(content)))

			exists, err := s.Exists(ctx, path)
			require.NoError(t, err)
			assert.True(t, exists)

			rc, err := s.ReadObject(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, content, readAllAndClose(t, rc))

			sum, err := s.SHA256(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, common.Sha256FromBytes(content), sum)

			require.NoError(t, s.Remove(ctx, path))
			exists, err = s.Exists(ctx, path)
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestStorage_ListAll(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, p := range []string{"listall/a.txt.gz", "listall/sub/b.txt.bz2"} {
				require.NoError(t, s.PutObject(ctx, p, bytes.NewReader([]byte("x"))))
			}
			time.Sleep(500 * time.Millisecond) // MinIO consistency delay

			files, err := s.ListAll(ctx, "listall")
			require.NoError(t, err)
			assert.Subset(t, files, []string{"listall/a.txt.gz", "listall/sub/b.txt.bz2"})

			missing, err := s.ListAll(ctx, "no-such-prefix")
			require.NoError(t, err)
			assert.Empty(t, missing)
		})
	}
}
