package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestLimiter_WindowResets(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: 2}).WithClock(fixedClock(&now))

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, int64(1), rl.Hits())

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"))
	assert.Equal(t, 2, rl.ActiveClients())
}

func TestLimiter_DefaultRate(t *testing.T) {
	rl := NewLimiter(Config{})
	for i := 0; i < 60; i++ {
		assert.True(t, rl.Allow("a"))
	}
	assert.False(t, rl.Allow("a"))
}

func TestLimiter_CleanExpiredDropsIdleClients(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: 5}).WithClock(fixedClock(&now))

	rl.Allow("a")
	now = now.Add(11 * time.Minute)
	rl.Allow("b")
	assert.Equal(t, 1, rl.CleanExpired())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestMiddleware_OnlyLimitsWrites(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 15, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: 1}).WithClock(fixedClock(&now))

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/creditcard", nil))
		return rr
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodPost).Code)
	now = now.Add(20 * time.Second)
	limited := do(http.MethodPut)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "40", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, do(http.MethodGet).Code)
}
