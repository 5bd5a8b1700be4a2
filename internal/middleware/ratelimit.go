package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/kidsstudy/kidsstudy/internal/cache"
)

// IPLimiter consumes rate limit tokens per client address.
type IPLimiter interface {
	CheckIPRateLimit(ctx context.Context, scope, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig configures one rate-limited route group.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter IPLimiter
	Scope   string // bucket namespace, e.g. "checkout"
	Enabled bool
	RPS     int
	Burst   int
}

// RateLimitIP limits requests per client IP within cfg.Scope.
// Limiter errors fail open.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || cfg.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), cfg.Scope, clientIP(r), cfg.RPS, cfg.Burst)
			if err != nil {
				cfg.Logger.Error("rate limit check failed, allowing request",
					slog.String("scope", cfg.Scope),
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))

			if result.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(math.Ceil(result.RetryAfter.Seconds())), 1)
			cfg.Logger.Warn("rate limit exceeded",
				slog.String("scope", cfg.Scope),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.Int("retry_after_seconds", retryAfter),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
				"Too many requests. Retry after "+strconv.Itoa(retryAfter)+" seconds.")
		})
	}
}

// clientIP returns the host part of RemoteAddr. Proxy headers are applied
// upstream by chi's RealIP, so they are not read here.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
