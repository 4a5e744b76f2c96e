package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("booking lock not acquired")
)

// Locker guards the check-then-insert critical section for one
// doctor/instant pair so concurrent bookings of the same slot serialize.
type Locker interface {
	WithBookingLock(ctx context.Context, doctorID uuid.UUID, startAt time.Time, fn func(ctx context.Context) error) error
}

type redisBookingLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBookingLocker creates a locker keyed per doctor and slot instant.
func NewRedisBookingLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisBookingLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisBookingLocker) WithBookingLock(ctx context.Context, doctorID uuid.UUID, startAt time.Time, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:booking:%s:%d", doctorID.String(), startAt.UTC().Unix())
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire booking lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
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

func (l *redisBookingLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release booking lock: %w", err)
	}
	return nil
}
