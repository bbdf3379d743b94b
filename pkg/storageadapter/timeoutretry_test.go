package storageadapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defarm/tracectl/pkg/config"
	"github.com/defarm/tracectl/pkg/types"
)

// flakyAdapter fails StoreItem the first failsBefore calls, then delegates.
type flakyAdapter struct {
	Adapter
	failsBefore int
	calls       int
}

func (f *flakyAdapter) StoreItem(ctx context.Context, item *types.Item) (string, types.StorageLocation, error) {
	f.calls++
	if f.calls <= f.failsBefore {
		return "", types.StorageLocation{}, errors.New("transient failure")
	}
	return f.Adapter.StoreItem(ctx, item)
}

func TestTimeoutRetryAdapter_RetriesUntilSuccess(t *testing.T) {
	flaky := &flakyAdapter{Adapter: NewLocalLocal(), failsBefore: 2}
	wrapped := WithConnectionDetails(flaky, config.AdapterConnectionDetails{TimeoutMS: 100, RetryAttempts: 5})

	id, loc, err := wrapped.StoreItem(context.Background(), &types.Item{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, types.StorageLocal, loc.Kind)
	assert.Equal(t, 3, flaky.calls)
}

func TestTimeoutRetryAdapter_ExhaustsRetries(t *testing.T) {
	flaky := &flakyAdapter{Adapter: NewLocalLocal(), failsBefore: 100}
	wrapped := WithConnectionDetails(flaky, config.AdapterConnectionDetails{TimeoutMS: 100, RetryAttempts: 2})

	_, _, err := wrapped.StoreItem(context.Background(), &types.Item{})
	require.Error(t, err)
	assert.Equal(t, 3, flaky.calls) // initial attempt + 2 retries
}

func TestTimeoutRetryAdapter_ClampsRetryAttempts(t *testing.T) {
	wrapped := WithConnectionDetails(NewLocalLocal(), config.AdapterConnectionDetails{TimeoutMS: 0, RetryAttempts: 999})
	assert.Equal(t, 10, wrapped.detail.RetryAttempts)
	assert.Equal(t, 5000, wrapped.detail.TimeoutMS)
}

func TestTimeoutRetryAdapter_DelegatesReadsAndHealth(t *testing.T) {
	inner := NewLocalLocal()
	wrapped := WithConnectionDetails(inner, config.AdapterConnectionDetails{TimeoutMS: 50, RetryAttempts: 1})

	id, _, err := wrapped.StoreItem(context.Background(), &types.Item{})
	require.NoError(t, err)

	got, ok, err := wrapped.GetItem(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, got.Item)

	assert.True(t, wrapped.HealthCheck(context.Background()))

	status, err := wrapped.SyncStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.IsSynced)
	assert.WithinDuration(t, time.Now().UTC(), status.LastSync, time.Second)
}
