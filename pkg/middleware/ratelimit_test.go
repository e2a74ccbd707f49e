package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tasktrack/pkg/observability"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
		BurstSize:         1,
	})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		allowed, err := limiter.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i)
	}

	allowed, err := limiter.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, allowed)

	// other keys have their own bucket
	allowed, _ = limiter.Allow(ctx, "ip:5.6.7.8")
	assert.True(t, allowed)
}

func TestRateLimiter_Remaining(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 5, WindowDuration: time.Minute, BurstSize: 0})
	ctx := context.Background()

	remaining, _ := limiter.Remaining(ctx, "k")
	assert.Equal(t, 5, remaining)

	limiter.Allow(ctx, "k")
	limiter.Allow(ctx, "k")

	remaining, _ = limiter.Remaining(ctx, "k")
	assert.Equal(t, 3, remaining)
}

func TestRateLimiter_TokenRefill(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 60, WindowDuration: time.Minute, BurstSize: 0})
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		limiter.Allow(ctx, "k")
	}
	allowed, _ := limiter.Allow(ctx, "k")
	assert.False(t, allowed)

	// one token per second
	now = now.Add(2 * time.Second)
	allowed, _ = limiter.Allow(ctx, "k")
	assert.True(t, allowed)

	remaining, _ := limiter.Remaining(ctx, "k")
	assert.Equal(t, 1, remaining)
}

func TestRateLimiter_Concurrency(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 50, WindowDuration: time.Hour, BurstSize: 0})
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow(ctx, "shared"); ok {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowedCount)
}

func TestNewRateLimiter_NilConfig(t *testing.T) {
	limiter := NewRateLimiter(nil)
	assert.Equal(t, DefaultRateLimitConfig(), limiter.Config())
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{name: "remote addr", remoteAddr: "10.0.0.1:54321", expected: "10.0.0.1"},
		{name: "remote addr without port", remoteAddr: "10.0.0.1", expected: "10.0.0.1"},
		{
			name:       "forwarded for",
			remoteAddr: "10.0.0.1:1",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.2"},
			expected:   "203.0.113.5",
		},
		{
			name:       "real ip",
			remoteAddr: "10.0.0.1:1",
			headers:    map[string]string{"X-Real-IP": "198.51.100.7"},
			expected:   "198.51.100.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, getClientIP(req))
		})
	}
}

func TestRateLimitMiddleware_Handler(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute, BurstSize: 0})
	handler := NewRateLimitMiddleware(limiter, "auth", metrics).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("1.1.1.1").Code)
	w := send("1.1.1.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = send("1.1.1.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), MsgRateLimited)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RateLimitedTotal.WithLabelValues("auth")))

	assert.Equal(t, http.StatusOK, send("2.2.2.2").Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return true, errors.New("connection refused")
}
func (failingLimiter) Remaining(context.Context, string) (int, error) { return 0, nil }
func (failingLimiter) Config() *RateLimitConfig                       { return DefaultRateLimitConfig() }

func TestRateLimitMiddleware_LimiterError(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	m := NewRateLimitMiddleware(failingLimiter{}, "auth", nil)

	w := httptest.NewRecorder()
	m.Handler(next).ServeHTTP(w, httptest.NewRequest("POST", "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	m.SetFailOpen(false)
	w = httptest.NewRecorder()
	m.Handler(next).ServeHTTP(w, httptest.NewRequest("POST", "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestDistributedRateLimiter(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
		BurstSize:         1,
	}, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "ip:1.1.1.1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	remaining, err := limiter.Remaining(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	ttl, err := limiter.TTL(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	// window rolls over
	mr.FastForward(time.Minute + time.Second)
	allowed, err = limiter.Allow(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "ip:1.1.1.1"))
	remaining, err = limiter.Remaining(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestDistributedRateLimiter_RedisDown(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewDistributedRateLimiter(client, nil, "test")
	mr.Close()

	allowed, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.True(t, allowed)
}
