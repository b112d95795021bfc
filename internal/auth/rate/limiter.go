// Package rate provides a Redis-backed fixed-window rate limiter for
// deployments running more than one wayfarer instance. The in-process token
// buckets in pkg/httpx protect a single node; these counters are shared.
//
// Fixed-window semantics: INCR plus a TTL set on the first hit of the
// window. The count resets when the key expires.
package rate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wayfarerhq/wayfarer/pkg/httpx"
	"github.com/wayfarerhq/wayfarer/pkg/slogx"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Limiter enforces shared fixed-window request budgets.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a Limiter backed by the given Redis client. prefix namespaces
// the keys so several limiters can share one database.
func New(client redis.UniversalClient, prefix string) *Limiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &Limiter{redis: client, prefix: prefix}
}

// Allow consumes one unit of key's budget. When the budget is exhausted it
// returns ErrRateLimited together with how long until the window resets.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (time.Duration, error) {
	full := l.prefix + ":" + key

	count, err := l.redis.Incr(ctx, full).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Only the first hit of the window sets the TTL.
	if count == 1 {
		if err := l.redis.Expire(ctx, full, window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(limit) {
		ttl, err := l.redis.TTL(ctx, full).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}
		return ttl, ErrRateLimited
	}
	return 0, nil
}

// Reset clears the counter for key, e.g. after a successful login.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.prefix+":"+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Middleware adapts the limiter into the HTTP middleware chain. A Redis
// outage fails open: losing rate limiting briefly beats taking down login.
func (l *Limiter) Middleware(cfg httpx.RateLimitConfig, keyExtractor httpx.KeyExtractor) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: no key extracted, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			retryAfter, err := l.Allow(r.Context(), key, cfg.RequestsPerWindow, cfg.Window)
			switch {
			case errors.Is(err, ErrRateLimited):
				log.Warn("shared rate limit exceeded",
					"key", key,
					"path", r.URL.Path,
				)
				httpx.RateLimited(retryAfter).Write(w)
				return
			case err != nil:
				log.Error("shared rate limiter unavailable, allowing request", "error", err)
			}

			next.ServeHTTP(w, r)
		})
	}
}
