package boltstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func TestOpenCreatesDirectoryAndBuckets(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "state.db")

	client, err := Open(dbPath)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, client.Close())
	}()

	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	err = client.db.View(func(tx *bbolt.Tx) error {
		for _, name := range DefaultBuckets {
			if tx.Bucket([]byte(name)) == nil {
				return os.ErrNotExist
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestOpenRequiresPath(t *testing.T) {
	client, err := Open("")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestPutGetDeleteRoundTrip(t *testing.T) {
	client, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	key := []byte("current")

	_, err = client.Get(ctx, BucketCart, key)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, client.Put(ctx, BucketCart, key, []byte(`{"items":[]}`)))

	got, err := client.Get(ctx, BucketCart, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"items":[]}`), got)

	require.NoError(t, client.Delete(ctx, BucketCart, key))
	_, err = client.Get(ctx, BucketCart, key)
	require.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting again should stay a no-op.
	require.NoError(t, client.Delete(ctx, BucketCart, key))
}

func TestGetReturnsCopy(t *testing.T) {
	client, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Put(ctx, BucketSession, []byte("k"), []byte("abc")))

	got, err := client.Get(ctx, BucketSession, []byte("k"))
	require.NoError(t, err)
	got[0] = 'z'

	again, err := client.Get(ctx, BucketSession, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestCloseIsIdempotent(t *testing.T) {
	client, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	err = client.Put(context.Background(), BucketCart, []byte("k"), []byte("v"))
	assert.Error(t, err)
}
