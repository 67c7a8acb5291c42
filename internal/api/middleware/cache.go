package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/example/online-store/internal/cache"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// ResponseCache stores rendered response bodies by key.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache serves GET requests from c and stores successful responses for ttl.
// Cache failures are logged and the request falls through to next.
func Cache(c ResponseCache, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := cache.Key(r.URL.Path, r.URL.Query())
			body, ok, err := c.Get(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("component", "cache").Str("key", key).Msg("cache read failed")
			}
			if ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(body)
				return
			}

			w.Header().Set("X-Cache", "MISS")
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			var buf bytes.Buffer
			ww.Tee(&buf)

			next.ServeHTTP(ww, r)

			if ww.Status() != http.StatusOK {
				return
			}
			if err := c.Set(r.Context(), key, buf.Bytes(), ttl); err != nil {
				log.Warn().Err(err).Str("component", "cache").Str("key", key).Msg("cache write failed")
			}
		})
	}
}
