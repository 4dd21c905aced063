package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("practitioner calendar lock not acquired")
)

// Locker serialises calendar writes per practitioner so a conflict check and
// the insert that follows it cannot interleave with another request.
type Locker interface {
	WithPractitionerLock(ctx context.Context, practitionerID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisPractitionerLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPractitionerLocker creates a locker that uses a per practitioner Redis key
func NewRedisPractitionerLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisPractitionerLocker{
		client: client,
		ttl:    ttl,
	}
}

func lockKey(practitionerID uuid.UUID) string {
	return fmt.Sprintf("lock:practitioner:%s", practitionerID.String())
}

func (l *redisPractitionerLocker) WithPractitionerLock(ctx context.Context, practitionerID uuid.UUID, fn func(ctx context.Context) error) error {
	key := lockKey(practitionerID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire practitioner lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisPractitionerLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release practitioner lock: %w", err)
	}
	return nil
}

// LocalLocker is an in-process Locker for single-instance runs and tests.
// It fails fast like the Redis locker instead of queueing.
type LocalLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[uuid.UUID]bool)}
}

func (l *LocalLocker) WithPractitionerLock(ctx context.Context, practitionerID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.held[practitionerID] {
		l.mu.Unlock()
		return ErrLockNotAcquired
	}
	l.held[practitionerID] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, practitionerID)
		l.mu.Unlock()
	}()

	return fn(ctx)
}
