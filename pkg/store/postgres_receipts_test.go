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

func TestPostgresReceiptStorePut(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := &types.Receipt{
		ID:          "r-1",
		ContentHash: "hash1",
		Timestamp:   time.Now().UTC(),
		DataSize:    5,
		Identifiers: []types.Identifier{{Namespace: "test", Key: "x", Value: "1"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO receipts").
		WithArgs("r-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM receipt_identifiers").
		WithArgs("r-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO receipt_identifiers").
		WithArgs("r-1", "test", "x", "1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	s := NewPostgresReceiptStore(db)
	require.NoError(t, s.PutReceipt(context.Background(), r))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReceiptStoreGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := &types.Receipt{ID: "r-2", ContentHash: "hash2"}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT data FROM receipts WHERE id = \\$1").
		WithArgs("r-2").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(data))

	s := NewPostgresReceiptStore(db)
	got, err := s.GetReceipt(context.Background(), "r-2")
	require.NoError(t, err)
	require.Equal(t, "hash2", got.ContentHash)
}

func TestPostgresReceiptStoreGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT data FROM receipts WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	s := NewPostgresReceiptStore(db)
	_, err = s.GetReceipt(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, traceerr.Is(err, traceerr.KindNotFound))
}

func TestPostgresReceiptStoreSearch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := &types.Receipt{ID: "r-3", ContentHash: "hash3"}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT DISTINCT r.data FROM receipts").
		WithArgs("x", "1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(data))

	s := NewPostgresReceiptStore(db)
	got, err := s.SearchReceipts(context.Background(), "", "x", "1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "r-3", got[0].ID)
}
