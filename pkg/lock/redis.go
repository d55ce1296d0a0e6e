package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/beanleaf/pkg/logger"
)

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out only while the key still holds our
// token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker implements Locker across processes sharing one Redis. A held
// lock is renewed every ttl/3 until released, so a holder stuck behind a slow
// backend keeps its lease. ttl only bounds how long a crashed holder blocks
// others.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

// NewRedisLocker returns a locker whose keys live under prefix.
func NewRedisLocker(rdb *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, poll: 50 * time.Millisecond}
}

func (r *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	full := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		ok, err := r.rdb.SetNX(ctx, full, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock: redis set %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	go keepAlive(stop, r.ttl/3, func() (bool, error) {
		extCtx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
		defer cancel()
		n, err := extendScript.Run(extCtx, r.rdb, []string{full}, token, r.ttl.Milliseconds()).Int()
		return n == 1, err
	}, key)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			// The caller's ctx may already be cancelled; release regardless.
			relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(relCtx, r.rdb, []string{full}, token).Err(); err != nil {
				logger.Warn("lock: redis release failed", "key", key, "error", err)
			}
		})
	}, nil
}

// keepAlive calls extend every interval until stop is closed or the lease is
// reported lost. Transient errors are logged and retried on the next tick.
func keepAlive(stop <-chan struct{}, interval time.Duration, extend func() (bool, error), key string) {
	interval = max(interval, time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			held, err := extend()
			if err != nil {
				logger.Warn("lock: redis renew failed", "key", key, "error", err)
				continue
			}
			if !held {
				logger.Warn("lock: redis lease lost", "key", key)
				return
			}
		}
	}
}
