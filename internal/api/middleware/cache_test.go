package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
	counts  map[string]int64
	err     error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		entries: map[string][]byte{},
		ttls:    map[string]time.Duration{},
		counts:  map[string]int64{},
	}
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.entries[key] = append([]byte(nil), value...)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCache) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	return m.counts[key], nil
}

// countingHandler answers with a fixed status and body and counts calls.
func countingHandler(status int, body string, calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// ============================================
// Cache Middleware Tests
// ============================================

func TestCache_MissThenHit(t *testing.T) {
	c := newMemoryCache()
	calls := 0
	h := Cache(c, time.Minute)(countingHandler(http.StatusOK, `{"items":[]}`, &calls))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products?size=5&page=1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, `{"items":[]}`, rec.Body.String())
	assert.Equal(t, []byte(`{"items":[]}`), c.entries["/products?page=1&size=5"])
	assert.Equal(t, time.Minute, c.ttls["/products?page=1&size=5"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products?page=1&size=5", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, `{"items":[]}`, rec.Body.String())
	assert.Equal(t, 1, calls, "second request should be served from cache")
}

func TestCache_DifferentQueriesDifferentKeys(t *testing.T) {
	c := newMemoryCache()
	calls := 0
	h := Cache(c, time.Minute)(countingHandler(http.StatusOK, `{}`, &calls))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products?page=1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products?page=2", nil))

	assert.Equal(t, 2, calls)
	assert.Len(t, c.entries, 2)
}

func TestCache_ErrorResponsesNotStored(t *testing.T) {
	c := newMemoryCache()
	calls := 0
	h := Cache(c, time.Minute)(countingHandler(http.StatusBadRequest, `{"error":"invalid page"}`, &calls))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products?page=0", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	assert.Equal(t, 2, calls)
	assert.Empty(t, c.entries)
}

func TestCache_NonGetBypasses(t *testing.T) {
	c := newMemoryCache()
	calls := 0
	h := Cache(c, time.Minute)(countingHandler(http.StatusOK, `{}`, &calls))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products", nil))

	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Empty(t, c.entries)
}

func TestCache_BackendFailureFallsThrough(t *testing.T) {
	c := newMemoryCache()
	c.err = errors.New("redis down")
	calls := 0
	h := Cache(c, time.Minute)(countingHandler(http.StatusOK, `{"ok":true}`, &calls))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, 1, calls)
}

// ============================================
// Rate Limit Middleware Tests
// ============================================

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	c := newMemoryCache()
	h := RateLimit(c, "login", 2, time.Minute)(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, int64(3), c.counts["rate_limit:login:10.0.0.1"])
}

func TestRateLimit_SeparateClients(t *testing.T) {
	c := newMemoryCache()
	h := RateLimit(c, "login", 1, time.Minute)(okHandler)

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, addr)
	}
}

func TestRateLimit_RetryAfterHeader(t *testing.T) {
	c := newMemoryCache()
	h := RateLimit(c, "login", 0, time.Minute)(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too many requests")
}

func TestRateLimit_CounterFailureAllows(t *testing.T) {
	c := newMemoryCache()
	c.err = errors.New("redis down")
	h := RateLimit(c, "login", 0, time.Minute)(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

// ============================================
// Access Log Middleware Tests
// ============================================

func TestAccessLog_WritesRequestLine(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	calls := 0
	h := AccessLog(countingHandler(http.StatusCreated, `{}`, &calls))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	out := buf.String()
	assert.Contains(t, out, `"method":"POST"`)
	assert.Contains(t, out, `"path":"/orders"`)
	assert.Contains(t, out, `"status":201`)
}
