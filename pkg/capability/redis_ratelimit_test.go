package capability

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisLimiter(t *testing.T, rps, burst int) *RedisRateLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRateLimiter(client, rps, burst)
}

func TestRedisRateLimiterAllowsWithinBurst(t *testing.T) {
	limiter := newTestRedisLimiter(t, 1, 3)

	for i := 0; i < 3; i++ {
		allowed, budget := limiter.Allow("actor-1")
		require.True(t, allowed, "request %d should be allowed", i)
		require.Equal(t, "actor-1", budget.ActorID)
		require.Equal(t, 3, budget.Limit)
	}
}

func TestRedisRateLimiterRejectsOverBurst(t *testing.T) {
	limiter := newTestRedisLimiter(t, 1, 2)

	for i := 0; i < 2; i++ {
		allowed, _ := limiter.Allow("actor-2")
		require.True(t, allowed)
	}

	allowed, budget := limiter.Allow("actor-2")
	require.False(t, allowed)
	require.LessOrEqual(t, budget.Remaining, 0)
}

func TestRedisRateLimiterIsolatesActors(t *testing.T) {
	limiter := newTestRedisLimiter(t, 1, 1)

	allowedA, _ := limiter.Allow("actor-a")
	require.True(t, allowedA)
	allowedA2, _ := limiter.Allow("actor-a")
	require.False(t, allowedA2)

	allowedB, _ := limiter.Allow("actor-b")
	require.True(t, allowedB, "a separate actor must have its own budget")
}

func TestGateWithRedisLimiter(t *testing.T) {
	limiter := newTestRedisLimiter(t, 100, 100)
	gate := NewWithLimiter(nil, nil, limiter)
	require.NotNil(t, gate)
	require.Equal(t, limiter, gate.limiter)
}
