package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimit_UnderLimit(t *testing.T) {
	handler := RateLimit(NewLimiter(RateLimitConfig{Max: 5, Window: time.Minute}))(okHandler())

	for i := range 5 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("192.168.1.1:12345"))

		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	handler := RateLimit(NewLimiter(RateLimitConfig{Max: 2, Window: time.Minute}))(okHandler())

	for range 2 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("10.0.0.1:9999"))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("10.0.0.1:9999"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":429,"message":"rate limit exceeded"}`, w.Body.String())
}

func TestRateLimit_KeysAreIndependent(t *testing.T) {
	handler := RateLimit(NewLimiter(RateLimitConfig{Max: 1, Window: time.Minute}))(okHandler())

	for _, tc := range []struct {
		addr string
		want int
	}{
		{"10.0.0.1:1234", http.StatusOK},
		{"10.0.0.2:1234", http.StatusOK},
		{"10.0.0.1:5678", http.StatusTooManyRequests},
	} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom(tc.addr))
		assert.Equal(t, tc.want, w.Code, tc.addr)
	}
}

func TestRateLimit_Skip(t *testing.T) {
	l := NewLimiter(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		Skip:   func(r *http.Request) bool { return r.URL.Path == "/readyz" },
	})
	handler := RateLimit(l)(okHandler())

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l := NewLimiter(RateLimitConfig{Max: 10, Window: time.Minute})
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for range 10 {
		_, _, ok := l.Allow("k", start)
		require.True(t, ok)
	}
	_, _, ok := l.Allow("k", start.Add(30*time.Second))
	assert.False(t, ok, "window is full")

	// Half-way into the next window the previous one still weighs 5.
	remaining, _, ok := l.Allow("k", start.Add(90*time.Second))
	assert.True(t, ok)
	assert.Equal(t, 4, remaining)

	// Two full windows later everything is forgotten.
	remaining, _, ok = l.Allow("k", start.Add(5*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, 9, remaining)
}

func TestLimiter_Evict(t *testing.T) {
	l := NewLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Now()
	l.Allow("a", now)

	l.evict(now.Add(time.Minute))
	assert.Len(t, l.keys, 1)

	l.evict(now.Add(3 * time.Minute))
	assert.Empty(t, l.keys)
}

func TestClientIP(t *testing.T) {
	req := requestFrom("192.168.1.1:4444")
	assert.Equal(t, "192.168.1.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	assert.Equal(t, "203.0.113.50", ClientIP(req))
}
