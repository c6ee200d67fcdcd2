package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-ledger/internal/storage"
)

func openTemp(t *testing.T) *KVStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestKVStore_WriteBatchAndGet(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()

	require.NoError(t, store.WriteBatch(ctx, []storage.Write{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	}))

	got, err := store.Get(ctx, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	require.NoError(t, store.WriteBatch(ctx, []storage.Write{{Key: []byte("a"), Delete: true}}))

	got, err = store.Get(ctx, []byte("a"))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.Get(ctx, []byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestKVStore_InvalidKeyRejectsWholeBatch(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()

	err := store.WriteBatch(ctx, []storage.Write{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte{}, Value: []byte("2")},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	got, err := store.Get(ctx, []byte("a"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestKVStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.WriteBatch(ctx, []storage.Write{{Key: []byte("supply"), Value: []byte{7}}}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, []byte("supply"))
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, got)
}
