package sqlitedb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/interfaces"
)

func TestStore_CRUD(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cartera.db")
	store, err := NewStore(common.NewSilentLogger(), path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	_, err = store.Get(ctx, "stocksApp")
	assert.True(t, errors.Is(err, interfaces.ErrKeyNotFound), "missing key: %v", err)

	require.NoError(t, store.Set(ctx, "stocksApp", []byte(`{"version":2,"wallets":[]}`)))
	got, err := store.Get(ctx, "stocksApp")
	require.NoError(t, err)
	assert.Equal(t, `{"version":2,"wallets":[]}`, string(got))

	require.NoError(t, store.Set(ctx, "stocksApp", []byte(`{"version":2}`)))
	got, err = store.Get(ctx, "stocksApp")
	require.NoError(t, err)
	assert.Equal(t, `{"version":2}`, string(got), "set must overwrite")

	require.NoError(t, store.Delete(ctx, "stocksApp"))
	_, err = store.Get(ctx, "stocksApp")
	assert.True(t, errors.Is(err, interfaces.ErrKeyNotFound))
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartera.db")
	ctx := context.Background()

	store, err := NewStore(common.NewSilentLogger(), path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Close())

	reopened, err := NewStore(common.NewSilentLogger(), path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}
