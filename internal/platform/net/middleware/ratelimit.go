package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	pnet "github.com/ditsyandrea22/celo-identity/internal/platform/net"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether the caller identified by key may spend one token
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LimitPolicy is a token bucket shape: PerMinute refill with Burst capacity
type LimitPolicy struct {
	PerMinute int
	Burst     int
}

func (p LimitPolicy) perSecond() float64 {
	if p.PerMinute <= 0 {
		return 1
	}
	return float64(p.PerMinute) / 60.0
}

func (p LimitPolicy) burst() int {
	if p.Burst <= 0 {
		return 1
	}
	return p.Burst
}

// retryAfter is the time one token takes to refill
func (p LimitPolicy) retryAfter() time.Duration {
	return time.Duration(float64(time.Second) / p.perSecond())
}

// LocalLimiter keeps one x/time/rate bucket per key in process memory
// buckets idle longer than ttl are swept on access
type LocalLimiter struct {
	mu       sync.Mutex
	policy   LimitPolicy
	ttl      time.Duration
	now      func() time.Time
	visitors map[string]*visitor
	lastScan time.Time
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLocalLimiter builds an in process limiter
func NewLocalLimiter(p LimitPolicy) *LocalLimiter {
	return &LocalLimiter{
		policy:   p,
		ttl:      10 * time.Minute,
		now:      time.Now,
		visitors: map[string]*visitor{},
	}
}

// Allow implements Limiter
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastScan) > l.ttl {
		for k, v := range l.visitors {
			if now.Sub(v.seen) > l.ttl {
				delete(l.visitors, k)
			}
		}
		l.lastScan = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(rate.Limit(l.policy.perSecond()), l.policy.burst())}
		l.visitors[key] = v
	}
	v.seen = now
	return v.lim.AllowN(now, 1), nil
}

// tokenBucketScript refills and spends atomically inside redis
// KEYS[1] bucket key, ARGV rate/sec, capacity, cost, now (fractional seconds)
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local cost = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if not tokens or not ts then
    tokens = capacity
    ts = now
end

local elapsed = now - ts
if elapsed > 0 then
    tokens = math.min(capacity, tokens + elapsed * rate)
    ts = now
end

local allowed = 0
if tokens >= cost then
    tokens = tokens - cost
    allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "ts", ts)
redis.call("EXPIRE", key, math.ceil(capacity / rate) + 1)
return allowed
`)

// RedisLimiter shares buckets across API replicas through redis
type RedisLimiter struct {
	client redis.Scripter
	prefix string
	policy LimitPolicy
	now    func() time.Time
}

// NewRedisLimiter builds a limiter over an existing redis client
func NewRedisLimiter(client redis.Scripter, prefix string, p LimitPolicy) *RedisLimiter {
	if prefix == "" {
		prefix = "celoid:ratelimit:"
	}
	return &RedisLimiter{client: client, prefix: prefix, policy: p, now: time.Now}
}

// Allow implements Limiter
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(l.now().UnixMicro()) / 1e6
	n, err := tokenBucketScript.Run(ctx, l.client, []string{l.prefix + key},
		l.policy.perSecond(), l.policy.burst(), 1, now).Int()
	if err != nil {
		return false, fmt.Errorf("redis limiter: %w", err)
	}
	return n == 1, nil
}

// RateLimit spends one token per request against lim, keyed by pnet.ClientKeyFrom
// limiter errors fail open with a warning so a redis outage never blocks submissions
func RateLimit(lim Limiter, p LimitPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if lim == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := pnet.ClientKeyFrom(r)
			ctx := pnet.WithClient(r.Context(), key)

			ok, err := lim.Allow(ctx, key)
			if err != nil {
				logger.C(ctx).Warn().Err(err).Str("client_key", key).Msg("rate limiter unavailable; allowing")
				ok = true
			}
			if !ok {
				writeError(w, r, perr.Newf(perr.ErrorCodeTooManyRequests, "rate limit exceeded"), p.retryAfter())
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
