package http

import (
	"context"
	"sync"
	"time"

	"github.com/artpromedia/aivo-v5-sub002/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITING
// ══════════════════════════════════════════════════════════════════════════════

// RateLimiter throttles requests per caller key within a one-minute window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int) (bool, error)
}

// RedisRateLimiter counts requests in Redis so the limit holds across
// replicas of the service.
type RedisRateLimiter struct {
	cache *redis.Cache
}

// NewRedisRateLimiter creates a Redis-backed rate limiter.
func NewRedisRateLimiter(cache *redis.Cache) *RedisRateLimiter {
	return &RedisRateLimiter{cache: cache}
}

// Allow implements RateLimiter.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit int) (bool, error) {
	count, err := l.cache.IncrWindow(ctx, redis.PrefixRateLimit+key, redis.TTLRateLimitWindow)
	if err != nil {
		return false, err
	}
	return count <= int64(limit), nil
}

// LocalRateLimiter is an in-process sliding window limiter. A fallback for
// deployments without Redis; single replica only.
type LocalRateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	window   time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLocalRateLimiter creates an in-process rate limiter.
func NewLocalRateLimiter() *LocalRateLimiter {
	l := &LocalRateLimiter{
		requests: make(map[string][]time.Time),
		window:   time.Minute,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Close stops the background cleanup goroutine. Safe to call more than once.
func (l *LocalRateLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Allow implements RateLimiter.
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-l.window)

	var valid []time.Time
	for _, t := range l.requests[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= limit {
		l.requests[key] = valid
		return false, nil
	}

	l.requests[key] = append(valid, now)
	return true, nil
}

func (l *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		l.mu.Lock()
		windowStart := time.Now().Add(-l.window)
		for key, requests := range l.requests {
			var valid []time.Time
			for _, t := range requests {
				if t.After(windowStart) {
					valid = append(valid, t)
				}
			}
			if len(valid) == 0 {
				delete(l.requests, key)
			} else {
				l.requests[key] = valid
			}
		}
		l.mu.Unlock()
	}
}
