package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/meshwork-app/meshwork-api/pkg/observability"
)

// RateLimitConfig bounds requests per client per window.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// AuthRateLimitConfig is the default for credential endpoints: tight enough
// to blunt online guessing, loose enough for a user retyping a password.
func AuthRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Minute,
	}
}

// RateLimiter is a Redis-backed fixed-window request limiter keyed by client
// IP. Counters live in Redis so the limit holds across instances. Redis
// failures fail open: availability of the API is preferred over strictness
// of the limit, and the failure is logged and counted.
type RateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
	logger *observability.Logger
}

// NewRateLimiter creates a limiter with the given key prefix.
func NewRateLimiter(client *redis.Client, config *RateLimitConfig, prefix string, logger *observability.Logger) *RateLimiter {
	if config == nil {
		config = AuthRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RateLimiter{redis: client, config: config, prefix: prefix, logger: logger}
}

// Handler wraps next with the rate limit.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := fmt.Sprintf("%s:ip:%s", rl.prefix, clientIP(r))

		pipe := rl.redis.Pipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, rl.config.WindowDuration)
		if _, err := pipe.Exec(ctx); err != nil {
			if rl.logger != nil {
				rl.logger.WithError(err).Warn("rate limiter redis unavailable, failing open")
			}
			observability.RateLimitErrors.Inc()
			next.ServeHTTP(w, r)
			return
		}

		count := incr.Val()
		remaining := int64(rl.config.RequestsPerWindow) - count
		if remaining < 0 {
			remaining = 0
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.RequestsPerWindow))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.config.RequestsPerWindow) {
			observability.RateLimitRejections.Inc()
			retryAfter := rl.config.WindowDuration
			if ttl, err := rl.redis.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				retryAfter = ttl
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"error":"rate_limited","error_description":"Too many requests, retry in %d seconds."}`,
				int(retryAfter.Seconds()))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP resolves the caller address, trusting X-Forwarded-For when set by
// the fronting proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
