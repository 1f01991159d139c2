package merge

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packfinderz-storefront/pkg/boltstore"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
)

func newTestMarkerStore(t *testing.T) MarkerStore {
	t.Helper()

	client, err := boltstore.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewMarkerStore(client)
	require.NoError(t, err)
	return store
}

func TestMarkerStoreRoundTrip(t *testing.T) {
	store := newTestMarkerStore(t)
	ctx := context.Background()

	current, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)

	require.NoError(t, store.Set(ctx, "session-a"))

	current, err = store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session-a", current)

	// A new login overwrites the marker with its own session.
	require.NoError(t, store.Set(ctx, "session-b"))

	current, err = store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session-b", current)
}

func TestMarkerStoreClear(t *testing.T) {
	store := newTestMarkerStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "session-a"))
	require.NoError(t, store.Clear(ctx))

	current, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)

	// Clearing an absent marker is a no-op.
	require.NoError(t, store.Clear(ctx))
}

func TestMarkerStoreSetRequiresSessionID(t *testing.T) {
	store := newTestMarkerStore(t)

	err := store.Set(context.Background(), "")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestNewMarkerStoreRequiresClient(t *testing.T) {
	_, err := NewMarkerStore(nil)
	require.Error(t, err)
}
