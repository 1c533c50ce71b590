package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	config := &RateLimitConfig{RequestsPerWindow: limit, WindowDuration: time.Minute}
	return NewRateLimiter(client, config, "test", nil), mr
}

func limitedRequest(handler http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/authorize", nil)
	req.RemoteAddr = "10.0.0.1:55555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, 3)
	handler := rl.Handler(okHandler())

	for i := 0; i < 3; i++ {
		rec := limitedRequest(handler)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, 2)
	handler := rl.Handler(okHandler())

	limitedRequest(handler)
	limitedRequest(handler)
	rec := limitedRequest(handler)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	handler := rl.Handler(okHandler())

	limitedRequest(handler)

	req := httptest.NewRequest(http.MethodPost, "/auth/authorize", nil)
	req.RemoteAddr = "10.0.0.2:55555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterHonorsForwardedFor(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	handler := rl.Handler(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/authorize", nil)
		req.RemoteAddr = "127.0.0.1:1"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if i == 1 {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
}

func TestRateLimiterFailsOpenWhenRedisDown(t *testing.T) {
	rl, mr := newTestLimiter(t, 1)
	handler := rl.Handler(okHandler())

	mr.Close()

	rec := limitedRequest(handler)
	assert.Equal(t, http.StatusOK, rec.Code)
}
