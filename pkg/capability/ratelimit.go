package capability

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter charges one request against actorID's budget and reports
// the resulting snapshot regardless of outcome. actorLimiter is the
// default in-process implementation; RedisRateLimiter backs it with a
// shared bucket for multi-instance deployments.
type RateLimiter interface {
	Allow(actorID string) (allowed bool, budget *RateBudget)
}

// actorLimiter mirrors pkg/api's per-IP GlobalRateLimiter shape, keyed by
// ActorID instead of IP so one actor shares a budget across every
// credential (JWT session, API key) it authenticates with.
type actorLimiter struct {
	mu       sync.Mutex
	limiters map[string]*actorVisitor
	rps      rate.Limit
	burst    int
}

type actorVisitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newActorLimiter(rps int, burst int) *actorLimiter {
	return &actorLimiter{
		limiters: make(map[string]*actorVisitor),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow consumes one token from actorID's budget and reports the budget
// snapshot for the RequestContext regardless of outcome.
func (l *actorLimiter) Allow(actorID string) (allowed bool, budget *RateBudget) {
	l.mu.Lock()
	v, ok := l.limiters[actorID]
	if !ok {
		v = &actorVisitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[actorID] = v
	}
	v.lastSeen = time.Now()
	limiter := v.limiter
	l.mu.Unlock()

	allowed = limiter.Allow()
	return allowed, &RateBudget{
		ActorID:    actorID,
		Remaining:  int(limiter.Tokens()),
		Limit:      l.burst,
		ResetAfter: time.Second,
	}
}

// sweep drops visitors idle for longer than ttl, called periodically by
// the owning Gate to bound memory.
func (l *actorLimiter) sweep(ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	for id, v := range l.limiters {
		if now.Sub(v.lastSeen) > ttl {
			delete(l.limiters, id)
		}
	}
}
