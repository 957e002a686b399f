package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

const DefaultKeyPrefix = "ratelimit:"

type Logger interface {
	Error(msg string, args ...interface{})
}

// RateLimiter decides whether the caller identified by key is over its budget.
type RateLimiter interface {
	GetLimitDetails() (int, time.Duration)
	IsLimited(ctx context.Context, key string) (bool, error)
	Close() error
}

// InMemoryRateLimiter is a per-key token bucket for single-instance deployments.
type InMemoryRateLimiter struct {
	requests int
	window   time.Duration

	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	ops      uint64
	now      func() time.Time
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewInMemoryRateLimiter(requests int, window time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		requests: requests,
		window:   window,
		limiters: make(map[string]*keyedLimiter),
		now:      time.Now,
	}
}

func (r *InMemoryRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *InMemoryRateLimiter) IsLimited(_ context.Context, key string) (bool, error) {
	if key == "" {
		key = "__empty__"
	}

	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.limiters[key]
	if !ok {
		perSecond := float64(r.requests) / r.window.Seconds()
		k = &keyedLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), r.requests)}
		r.limiters[key] = k
	}
	k.lastSeen = now

	r.ops++
	if r.ops%1024 == 0 {
		r.evictIdle(now.Add(-2 * r.window))
	}

	return !k.limiter.AllowN(now, 1), nil
}

func (r *InMemoryRateLimiter) evictIdle(cutoff time.Time) {
	for key, k := range r.limiters {
		if k.lastSeen.Before(cutoff) {
			delete(r.limiters, key)
		}
	}
}

func (r *InMemoryRateLimiter) Close() error {
	return nil
}

// slidingWindow returns 1 when the key is over its limit, 0 otherwise.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local expire = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

if redis.call('ZCARD', key) >= limit then
	return 1
end

redis.call('ZADD', key, now, member)
redis.call('EXPIRE', key, expire)

return 0
`)

// RedisRateLimiter is a sliding-window limiter shared by every instance that
// talks to the same Redis.
type RedisRateLimiter struct {
	client    *redis.Client
	requests  int
	window    time.Duration
	keyPrefix string
	logger    Logger
}

func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration, logger Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:    client,
		requests:  requests,
		window:    window,
		keyPrefix: DefaultKeyPrefix,
		logger:    logger,
	}
}

func (r *RedisRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *RedisRateLimiter) IsLimited(ctx context.Context, key string) (bool, error) {
	fullKey := key
	if !strings.HasPrefix(key, r.keyPrefix) {
		fullKey = r.keyPrefix + key
	}

	args := []interface{}{
		time.Now().Unix(),
		int64(r.window.Seconds()),
		r.requests,
		int64((2 * r.window).Seconds()),
		newMemberID(),
	}

	result, err := slidingWindow.Run(ctx, r.client, []string{fullKey}, args...).Int64()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Redis rate limit script execution failed", "key", fullKey, "error", err)
		}
		return false, fmt.Errorf("rate limiter redis error: %w", err)
	}

	return result == 1, nil
}

// The Redis client is shared with the email lock and closed with the application.
func (r *RedisRateLimiter) Close() error {
	return nil
}

func newMemberID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Redis    *redis.Client // nil selects the in-memory limiter
	Logger   Logger
}

func NewRateLimiter(config *RateLimitConfig) RateLimiter {
	if config.Redis != nil {
		return NewRedisRateLimiter(config.Redis, config.Requests, config.Window, config.Logger)
	}
	return NewInMemoryRateLimiter(config.Requests, config.Window)
}
