package capability

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisTokenBucketScript runs the token bucket check atomically so
// concurrent requests against the same actor, from different Gate
// instances, never race on a read-modify-write.
//
// KEYS[1] = bucket key ("tracectl:ratelimit:<actorID>")
// ARGV[1] = refill rate (tokens per second)
// ARGV[2] = capacity (burst size)
// ARGV[3] = cost (tokens to consume, always 1 from Gate.Authenticate)
// ARGV[4] = now, unix seconds as a float
var redisTokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local cost = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = math.min(capacity, tokens + elapsed * rate)
    last_refill = now
end

local allowed = 0
if tokens >= cost then
    tokens = tokens - cost
    allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, 60)

return {allowed, tokens}
`)

// RedisRateLimiter is the distributed RateLimiter backing for deployments
// running more than one tracectl instance behind a shared actor budget.
// Unlike actorLimiter it needs no sweep: Redis expires idle buckets itself.
type RedisRateLimiter struct {
	client *redis.Client
	rps    int
	burst  int
}

// NewRedisRateLimiter returns a RateLimiter backed by client, with every
// actor sharing the same rps/burst budget shape as actorLimiter.
func NewRedisRateLimiter(client *redis.Client, rps, burst int) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, rps: rps, burst: burst}
}

// Allow runs the token bucket script against Redis. On any Redis error it
// fails open (allowed=true) with a zeroed budget, since a rate limiter
// outage must not become a full service outage; the error is swallowed
// here and is expected to surface via the client's own observability.
func (l *RedisRateLimiter) Allow(actorID string) (bool, *RateBudget) {
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	key := fmt.Sprintf("tracectl:ratelimit:%s", actorID)
	now := float64(time.Now().UnixMicro()) / 1e6

	res, err := redisTokenBucketScript.Run(ctx, l.client, []string{key}, l.rps, l.burst, 1, now).Result()
	if err != nil {
		return true, &RateBudget{ActorID: actorID, Limit: l.burst, ResetAfter: time.Second}
	}

	results, ok := res.([]interface{})
	if !ok || len(results) != 2 {
		return true, &RateBudget{ActorID: actorID, Limit: l.burst, ResetAfter: time.Second}
	}

	allowed, _ := results[0].(int64)
	// Redis truncates a Lua number reply to an integer, so the fractional
	// token count after a partial refill is lost here; that's fine, this
	// is only a reporting value, not the accounting the script uses.
	remaining, _ := results[1].(int64)

	return allowed == 1, &RateBudget{
		ActorID:    actorID,
		Remaining:  int(remaining),
		Limit:      l.burst,
		ResetAfter: time.Second,
	}
}
