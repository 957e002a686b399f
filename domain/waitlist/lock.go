package waitlist

//go:generate mockgen -source=lock.go -destination=mock_lock.go -package=waitlist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/akeren/sheet-waitlist/internal/log"
	"github.com/akeren/sheet-waitlist/pkg/constants"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var ErrLockTimeout = errors.New("waitlist: timed out waiting for email lock")

// EmailLock serialises the check-then-append sequence for one email.
type EmailLock interface {
	// Acquire blocks until email is held, ctx ends, or the wait exceeds the
	// lock TTL. release is non-nil whenever err is nil.
	Acquire(ctx context.Context, email string) (release func(), err error)
}

// NewEmailLock returns a Redis lock when client is set, otherwise an
// in-process one. Both give up after ttl.
func NewEmailLock(client *redis.Client, ttl time.Duration, logger *log.Logger) EmailLock {
	if client != nil {
		return NewRedisEmailLock(client, ttl, logger)
	}
	return NewMemoryEmailLock(ttl)
}

func lockTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return constants.DefaultEmailLockTTL
	}
	return ttl
}

type memoryEmailLock struct {
	mu    sync.Mutex
	ttl   time.Duration
	slots map[string]*lockSlot
}

type lockSlot struct {
	held  chan struct{}
	users int
}

func NewMemoryEmailLock(ttl time.Duration) EmailLock {
	return &memoryEmailLock{ttl: lockTTL(ttl), slots: make(map[string]*lockSlot)}
}

func (l *memoryEmailLock) Acquire(ctx context.Context, email string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[email]
	if !ok {
		slot = &lockSlot{held: make(chan struct{}, 1)}
		l.slots[email] = slot
	}
	slot.users++
	l.mu.Unlock()

	timer := time.NewTimer(l.ttl)
	defer timer.Stop()

	select {
	case slot.held <- struct{}{}:
	case <-timer.C:
		l.leave(email, slot)
		return nil, ErrLockTimeout
	case <-ctx.Done():
		l.leave(email, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.held
			l.leave(email, slot)
		})
	}, nil
}

func (l *memoryEmailLock) leave(email string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.users--
	if slot.users == 0 {
		delete(l.slots, email)
	}
}

// releaseIfOwner deletes the lock key only when it still holds our token.
var releaseIfOwner = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type redisEmailLock struct {
	client       *redis.Client
	logger       *log.Logger
	ttl          time.Duration
	pollInterval time.Duration
	keyPrefix    string
}

func NewRedisEmailLock(client *redis.Client, ttl time.Duration, logger *log.Logger) EmailLock {
	if logger == nil {
		logger = log.NewLoggerWithJSONOutput()
	}
	return &redisEmailLock{
		client:       client,
		logger:       logger,
		ttl:          lockTTL(ttl),
		pollInterval: 50 * time.Millisecond,
		keyPrefix:    "waitlist:lock:",
	}
}

func (l *redisEmailLock) Acquire(ctx context.Context, email string) (func(), error) {
	key := l.keyPrefix + email
	token := uuid.NewString()
	deadline := time.Now().Add(l.ttl)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, token) })
	}, nil
}

// release runs on a fresh context since the request context may already be
// done. A failed release only delays the next holder until the key expires.
func (l *redisEmailLock) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseIfOwner.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.logger.Warn("Failed to release waitlist email lock",
			"key_prefix", l.keyPrefix,
			"expires_in", l.ttl.String(),
			"error", err,
		)
	}
}
