package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

func TestPostgresItemStoreGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	item := &types.Item{DFID: "dfid-1", Status: types.ItemActive, LastModified: time.Now().UTC()}
	data, err := json.Marshal(item)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT data FROM items WHERE dfid = \\$1").
		WithArgs("dfid-1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(data))

	s := NewPostgresItemStore(db)
	got, err := s.Get(context.Background(), "dfid-1")
	require.NoError(t, err)
	require.Equal(t, "dfid-1", got.DFID)
}

func TestPostgresItemStoreGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT data FROM items WHERE dfid = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	s := NewPostgresItemStore(db)
	_, err = s.Get(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, traceerr.Is(err, traceerr.KindNotFound))
}

func TestPostgresItemStorePut(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	item := &types.Item{DFID: "dfid-2", Status: types.ItemActive, LastModified: time.Now().UTC()}

	mock.ExpectExec("INSERT INTO items").
		WithArgs("dfid-2", string(types.ItemActive), item.LastModified, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := NewPostgresItemStore(db)
	require.NoError(t, s.Put(context.Background(), item))
}

func TestPostgresItemStoreExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("dfid-3").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	s := NewPostgresItemStore(db)
	ok, err := s.Exists(context.Background(), "dfid-3")
	require.NoError(t, err)
	require.True(t, ok)
}
