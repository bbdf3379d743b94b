package storageadapter

import (
	"context"
	"time"

	"github.com/defarm/tracectl/pkg/config"
	"github.com/defarm/tracectl/pkg/kernel/retry"
	"github.com/defarm/tracectl/pkg/types"
)

// TimeoutRetryAdapter wraps an Adapter with per-operation timeout and
// retry, sourced from a circuit's AdapterConnectionDetails. Only the
// network-backed variants (everything but LocalLocal) need this, but
// wrapping LocalLocal is harmless since its calls never block.
type TimeoutRetryAdapter struct {
	inner     Adapter
	detail    config.AdapterConnectionDetails
	adapterID string
	policy    retry.BackoffPolicy
}

// WithConnectionDetails wraps inner so every call runs under detail's
// timeout and retries up to detail.RetryAttempts times on error, waiting
// a deterministically-jittered backoff between attempts so a flapping
// remote store doesn't get hammered at full speed. A cancelled attempt
// never mutates in-process state; retried remote calls rely on the
// underlying store being idempotent (true for IPFS CIDs, not guaranteed
// for chain transactions — a retried chain write surfaces as a
// traceerr.Write the caller must handle per spec.md's timeout note).
func WithConnectionDetails(inner Adapter, detail config.AdapterConnectionDetails) *TimeoutRetryAdapter {
	return WithAdapterID(inner, detail, "")
}

// WithAdapterID is WithConnectionDetails but also seeds the deterministic
// retry jitter with adapterID, so two adapters retrying at the same
// instant don't all wake up and retry in lockstep.
func WithAdapterID(inner Adapter, detail config.AdapterConnectionDetails, adapterID string) *TimeoutRetryAdapter {
	detail = detail.Clamp()
	return &TimeoutRetryAdapter{
		inner:     inner,
		detail:    detail,
		adapterID: adapterID,
		policy: retry.BackoffPolicy{
			PolicyID:    "storageadapter-retry",
			BaseMs:      25,
			MaxMs:       int64(detail.TimeoutMS),
			MaxJitterMs: 25,
			MaxAttempts: detail.RetryAttempts,
		},
	}
}

func (a *TimeoutRetryAdapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(a.detail.TimeoutMS)*time.Millisecond)
}

// backoffWait blocks for the retry policy's delay before attempt
// attemptIndex, returning ctx.Err() early if ctx is done first.
func (a *TimeoutRetryAdapter) backoffWait(ctx context.Context, effectID string, attemptIndex int) error {
	if attemptIndex == 0 {
		return nil
	}
	delay := retry.ComputeBackoff(retry.BackoffParams{
		PolicyID:     a.policy.PolicyID,
		AdapterID:    a.adapterID,
		EffectID:     effectID,
		AttemptIndex: attemptIndex,
	}, a.policy)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryOp[T any](ctx context.Context, a *TimeoutRetryAdapter, effectID string, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for i := 0; i <= a.detail.RetryAttempts; i++ {
		if werr := a.backoffWait(ctx, effectID, i); werr != nil {
			var zero T
			return zero, werr
		}
		result, err = fn()
		if err == nil {
			return result, nil
		}
	}
	return result, err
}

func (a *TimeoutRetryAdapter) StoreItem(ctx context.Context, item *types.Item) (string, types.StorageLocation, error) {
	type result struct {
		id  string
		loc types.StorageLocation
	}
	r, err := retryOp(ctx, a, item.DFID, func() (result, error) {
		cctx, cancel := a.withTimeout(ctx)
		defer cancel()
		id, loc, err := a.inner.StoreItem(cctx, item)
		return result{id, loc}, err
	})
	return r.id, r.loc, err
}

func (a *TimeoutRetryAdapter) StoreEvent(ctx context.Context, evt *types.Event, itemID string) (string, types.StorageLocation, error) {
	type result struct {
		id  string
		loc types.StorageLocation
	}
	r, err := retryOp(ctx, a, evt.EventID, func() (result, error) {
		cctx, cancel := a.withTimeout(ctx)
		defer cancel()
		id, loc, err := a.inner.StoreEvent(cctx, evt, itemID)
		return result{id, loc}, err
	})
	return r.id, r.loc, err
}

func (a *TimeoutRetryAdapter) GetItem(ctx context.Context, id string) (StoredItem, bool, error) {
	type result struct {
		item StoredItem
		ok   bool
	}
	r, err := retryOp(ctx, a, id, func() (result, error) {
		cctx, cancel := a.withTimeout(ctx)
		defer cancel()
		item, ok, err := a.inner.GetItem(cctx, id)
		return result{item, ok}, err
	})
	return r.item, r.ok, err
}

func (a *TimeoutRetryAdapter) GetEvent(ctx context.Context, id string) (*types.Event, bool, error) {
	type result struct {
		evt *types.Event
		ok  bool
	}
	r, err := retryOp(ctx, a, id, func() (result, error) {
		cctx, cancel := a.withTimeout(ctx)
		defer cancel()
		evt, ok, err := a.inner.GetEvent(cctx, id)
		return result{evt, ok}, err
	})
	return r.evt, r.ok, err
}

func (a *TimeoutRetryAdapter) GetItemEvents(ctx context.Context, itemID string) ([]*types.Event, error) {
	return retryOp(ctx, a, itemID, func() ([]*types.Event, error) {
		cctx, cancel := a.withTimeout(ctx)
		defer cancel()
		return a.inner.GetItemEvents(cctx, itemID)
	})
}

func (a *TimeoutRetryAdapter) SyncStatus(ctx context.Context) (types.SyncStatus, error) {
	return retryOp(ctx, a, "sync-status", func() (types.SyncStatus, error) {
		cctx, cancel := a.withTimeout(ctx)
		defer cancel()
		return a.inner.SyncStatus(cctx)
	})
}

func (a *TimeoutRetryAdapter) HealthCheck(ctx context.Context) bool {
	cctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.inner.HealthCheck(cctx)
}
