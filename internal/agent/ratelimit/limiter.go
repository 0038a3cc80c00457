// Package ratelimit provides the outbound dispatch limiter: a fixed
// one-minute window per identity.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/dealerflow/salesagent/internal/core/error"
	logx "github.com/dealerflow/salesagent/pkg/logger"
)

// Limiter reports whether one more action is allowed for the identity in
// the current window.
type Limiter interface {
	Allow(ctx context.Context, identity string) (bool, error)
}

// RedisLimiter counts sends per identity per minute window in Redis, so
// the limit holds across processes.
type RedisLimiter struct {
	rdb       redis.Cmdable
	perMinute int
}

func NewRedisLimiter(rdb redis.Cmdable, perMinute int) *RedisLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	return &RedisLimiter{rdb: rdb, perMinute: perMinute}
}

func (l *RedisLimiter) key(identity string, now time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%d", identity, now.Unix()/60)
}

func (l *RedisLimiter) Allow(ctx context.Context, identity string) (bool, error) {
	key := l.key(identity, time.Now())

	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("rate limit counter failed")
		return false, errx.WrapRedis(err)
	}
	if n == 1 {
		// first hit opens the window; expiry failure self-heals next minute
		if err := l.rdb.Expire(ctx, key, 2*time.Minute).Err(); err != nil {
			logx.Warn().Err(err).Str("key", key).Msg("rate limit expire failed")
		}
	}
	return n <= int64(l.perMinute), nil
}

var _ Limiter = (*RedisLimiter)(nil)

// MemoryLimiter is the in-process equivalent for tests and the demo CLI.
type MemoryLimiter struct {
	mu        sync.Mutex
	perMinute int
	clock     func() time.Time
	counts    map[string]int
	window    int64
}

func NewMemoryLimiter(perMinute int, clock func() time.Time) *MemoryLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryLimiter{
		perMinute: perMinute,
		clock:     clock,
		counts:    map[string]int{},
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, identity string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.clock().Unix() / 60
	if window != l.window {
		l.window = window
		l.counts = map[string]int{}
	}
	l.counts[identity]++
	return l.counts[identity] <= l.perMinute, nil
}

var _ Limiter = (*MemoryLimiter)(nil)
