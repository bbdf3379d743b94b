package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

func TestSQLiteItemStoreRoundTrip(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	s := NewSQLiteItemStore(db)
	ctx := context.Background()

	item := &types.Item{
		DFID:         "dfid-1",
		Status:       types.ItemActive,
		CreatedAt:    time.Now().UTC(),
		LastModified: time.Now().UTC(),
		Identifiers:  []types.Identifier{},
	}

	exists, err := s.Exists(ctx, item.DFID)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, s.Put(ctx, item))

	exists, err = s.Exists(ctx, item.DFID)
	require.NoError(t, err)
	require.True(t, exists)

	got, err := s.Get(ctx, item.DFID)
	require.NoError(t, err)
	require.Equal(t, item.DFID, got.DFID)
	require.Equal(t, item.Status, got.Status)

	_, err = s.Get(ctx, "missing")
	require.Error(t, err)
	require.True(t, traceerr.Is(err, traceerr.KindNotFound))
}

func TestSQLiteItemStoreUpsert(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	s := NewSQLiteItemStore(db)
	ctx := context.Background()

	item := &types.Item{DFID: "dfid-2", Status: types.ItemActive, LastModified: time.Now().UTC()}
	require.NoError(t, s.Put(ctx, item))

	item.Status = types.ItemDeprecated
	require.NoError(t, s.Put(ctx, item))

	got, err := s.Get(ctx, "dfid-2")
	require.NoError(t, err)
	require.Equal(t, types.ItemDeprecated, got.Status)
}
