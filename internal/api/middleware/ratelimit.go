package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Counter increments a windowed counter and returns the new value.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit allows limit requests per client address per window for the
// routes it wraps. scope separates the counters of different routes.
// When the counter is unreachable requests are let through.
func RateLimit(counter Counter, scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "rate_limit:" + scope + ":" + clientIP(r)
			count, err := counter.Incr(r.Context(), key, window)
			if err != nil {
				log.Warn().Err(err).Str("component", "ratelimit").Str("key", key).Msg("rate limit counter failed")
				next.ServeHTTP(w, r)
				return
			}
			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				respondError(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
