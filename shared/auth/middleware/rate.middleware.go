package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pulsetrack/shared/response"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RateLimitConfig struct {
	Limit         int
	Window        time.Duration
	BlockDuration time.Duration
	KeyPrefix     string
	// Timeout bounds every redis round trip made for one request.
	Timeout time.Duration
	// TrustForwarded keys anonymous clients by the first X-Forwarded-For hop.
	// Leave it off unless a proxy that overwrites the header sits in front;
	// otherwise clients can pick their own key.
	TrustForwarded bool
}

// RateLimiter is a fixed window counter in redis keyed by principal subject
// or client IP. When redis errors the request is let through.
//
// The client IP is the connection's RemoteAddr. Run it behind a router that
// does not rewrite RemoteAddr from request headers.
func RateLimiter(rdb redis.Cmdable, cfg RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
			defer cancel()

			key := cfg.KeyPrefix + ":" + clientKey(r, cfg.TrustForwarded)
			blockKey := key + ":blocked"

			blocked, err := rdb.Get(ctx, blockKey).Result()
			if err != nil && err != redis.Nil {
				logger.Warn("rate limiter unavailable, failing open", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if blocked == "1" {
				ttl, _ := rdb.TTL(ctx, blockKey).Result()
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests. Try again in "+ttl.String())
				return
			}

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				logger.Warn("rate limiter unavailable, failing open", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(ctx, key, cfg.Window)
			}

			if count > int64(cfg.Limit) {
				rdb.Set(ctx, blockKey, "1", cfg.BlockDuration)
				w.Header().Set("Retry-After", strconv.Itoa(int(cfg.BlockDuration.Seconds())))
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests. Blocked for "+cfg.BlockDuration.String())
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(cfg.Limit-int(count)))
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request, trustForwarded bool) string {
	if p, ok := PrincipalFrom(r.Context()); ok && p.Subject != "" {
		return "sub:" + p.Subject
	}
	if fwd := r.Header.Get("X-Forwarded-For"); trustForwarded && fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return "ip:" + ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
