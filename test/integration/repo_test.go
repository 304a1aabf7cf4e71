//go:build integration

package integration

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/gzdec/pkg/codec"
	"github.com/hashmap-kz/gzdec/pkg/concur"
	"github.com/hashmap-kz/gzdec/pkg/crypt/aesgcm"
	"github.com/hashmap-kz/gzdec/pkg/pipe"
	"github.com/hashmap-kz/gzdec/pkg/repo"
)

func TestRepo_RestoreAllOverBackends(t *testing.T) {
	ctx := context.Background()
	crypter := aesgcm.NewChunkedGCMCrypter("integration")

	plain := []byte(strings.Repeat("2025-04-14 12:00:00 INFO request served\n", 20000))
	compressed := gzipBytes(t, plain)

	var encrypted bytes.Buffer
	w, err := crypter.Encrypt(&encrypted)
	require.NoError(t, err)
	_, err = w.Write(compressed)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.PutObject(ctx, "restore/app.log.gz", bytes.NewReader(compressed)))
			require.NoError(t, s.PutObject(ctx, "restore/app2.log.gz.aes", bytes.NewReader(encrypted.Bytes())))

			r := repo.New(s, crypter, "decoded")
			objects, err := r.ListCompressed(ctx, "restore")
			require.NoError(t, err)
			require.Len(t, objects, 2)

			outcomes := concur.Run(ctx, 2, objects, func(ctx context.Context, object string) (*repo.RestoreResult, error) {
				return r.Restore(ctx, object, repo.RestoreOptions{
					Force:  true,
					Verify: true,
					Decode: pipe.Options{ChunkSize: 8192},
				})
			})
			require.Empty(t, concur.Errors(outcomes))

			for _, o := range outcomes {
				assert.Equal(t, codec.Gzip, o.Result.Format)
				rc, err := s.ReadObject(ctx, o.Result.Dest)
				require.NoError(t, err)
				assert.Equal(t, plain, readAllAndClose(t, rc))
			}
		})
	}
}
