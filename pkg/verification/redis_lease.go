package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisEntryLeaser backs EntryLeaser with a distributed Redis lock
// (SET NX EX), making ProcessBatch safe to run concurrently from
// multiple tracectl instances against one shared EntryStore.
type RedisEntryLeaser struct {
	client *redis.Client
}

// NewRedisEntryLeaser returns an EntryLeaser backed by client.
func NewRedisEntryLeaser(client *redis.Client) *RedisEntryLeaser {
	return &RedisEntryLeaser{client: client}
}

// TryAcquire reports whether entryID was unclaimed and is now held by
// this caller for ttl.
func (l *RedisEntryLeaser) TryAcquire(ctx context.Context, entryID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("tracectl:verify:lease:%s", entryID)
	return l.client.SetNX(ctx, key, "1", ttl).Result()
}
