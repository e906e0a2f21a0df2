package httpmiddleware

import (
	"encoding/json"
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

func serve(h http.Handler, remoteAddr string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(okHandler())

	for i := range 5 {
		w := serve(handler, "192.168.1.1:12345", nil)

		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		require.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:9999", nil).Code)
	}

	w := serve(handler, "10.0.0.1:9999", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Contains(t, body.Message, "Too many requests")
}

func TestRateLimit_Refill(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for range 2 {
		_, _, ok := rl.allow("k", start)
		require.True(t, ok)
	}
	_, retry, ok := rl.allow("k", start)
	require.False(t, ok)
	assert.InDelta(t, float64(30*time.Second), float64(retry), float64(time.Millisecond))

	// One token per Window/Max.
	_, _, ok = rl.allow("k", start.Add(31*time.Second))
	assert.True(t, ok)
	_, _, ok = rl.allow("k", start.Add(31*time.Second))
	assert.False(t, ok)
}

func TestRateLimit_Cleanup(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	rl.allow("idle", now)
	rl.allow("busy", now.Add(50*time.Second))
	rl.cleanup(now.Add(70 * time.Second))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "idle")
	assert.Contains(t, rl.clients, "busy")
}

func TestRateLimit_DifferentIPs(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.2:1234", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "10.0.0.1:5678", nil).Code)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	handler := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("Authorization")
		},
	})(okHandler())

	a := http.Header{"Authorization": {"Bearer a"}}
	b := http.Header{"Authorization": {"Bearer b"}}
	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1", a).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "10.0.0.1:1", a).Code)
	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1", b).Code)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())
	xff := http.Header{"X-Forwarded-For": {"203.0.113.50, 70.41.3.18"}}

	assert.Equal(t, http.StatusOK, serve(handler, "192.168.1.1:4444", xff).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "192.168.1.2:5555", xff).Code)
}
