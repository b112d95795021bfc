package rate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/wayfarerhq/wayfarer/pkg/httpx"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, "test"), mr
}

func TestAllowWithinBudget(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		retryAfter, err := l.Allow(ctx, "alice", 3, time.Minute)
		require.NoError(t, err)
		require.Zero(t, retryAfter)
	}

	retryAfter, err := l.Allow(ctx, "alice", 3, time.Minute)
	require.ErrorIs(t, err, ErrRateLimited)
	require.Greater(t, retryAfter, time.Duration(0))

	// Another key has its own budget.
	_, err = l.Allow(ctx, "bob", 3, time.Minute)
	require.NoError(t, err)
}

func TestWindowExpiryResetsBudget(t *testing.T) {
	l, mr := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := l.Allow(ctx, "alice", 2, time.Minute)
		require.NoError(t, err)
	}
	_, err := l.Allow(ctx, "alice", 2, time.Minute)
	require.ErrorIs(t, err, ErrRateLimited)

	mr.FastForward(time.Minute + time.Second)

	_, err = l.Allow(ctx, "alice", 2, time.Minute)
	require.NoError(t, err)
}

func TestReset(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := l.Allow(ctx, "alice", 2, time.Minute)
		require.NoError(t, err)
	}
	require.NoError(t, l.Reset(ctx, "alice"))

	_, err := l.Allow(ctx, "alice", 2, time.Minute)
	require.NoError(t, err)
}

func TestMiddleware(t *testing.T) {
	l, _ := newTestLimiter(t)

	cfg := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute}
	handler := l.Middleware(cfg, httpx.IPKeyExtractor)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	doReq := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, doReq("203.0.113.7:1234").Code)
	require.Equal(t, http.StatusOK, doReq("203.0.113.7:1234").Code)

	rec := doReq("203.0.113.7:1234")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different client is unaffected.
	require.Equal(t, http.StatusOK, doReq("198.51.100.9:9999").Code)
}

func TestMiddlewareFailsOpenWhenRedisDown(t *testing.T) {
	l, mr := newTestLimiter(t)
	mr.Close()

	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute}
	handler := l.Middleware(cfg, httpx.IPKeyExtractor)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
