package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window = time.Minute
	// idleAfter is how long a client may stay silent before CleanExpired
	// forgets it.
	idleAfter = 10 * time.Minute
)

// Limiter admits at most perMinute writes per client inside each fixed
// one-minute window. The window opens with the client's first request.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perMinute int
	rejected  atomic.Int64
	now       func() time.Time
}

type bucket struct {
	opened time.Time
	seen   time.Time
	count  int
}

type Config struct {
	RequestsPerMinute int
}

// NewLimiter builds a limiter; a non-positive rate falls back to 60.
func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	return &Limiter{
		buckets:   make(map[string]*bucket),
		perMinute: cfg.RequestsPerMinute,
		now:       time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow records one request from client and reports whether it fits the
// current window.
func (l *Limiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now()
	b, ok := l.buckets[client]
	if !ok || t.Sub(b.opened) >= window {
		l.buckets[client] = &bucket{opened: t, seen: t, count: 1}
		return true
	}
	b.seen = t
	b.count++
	if b.count <= l.perMinute {
		return true
	}
	l.rejected.Add(1)
	return false
}

// retryAfter is the number of whole seconds until client's window closes.
func (l *Limiter) retryAfter(client string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[client]
	if !ok {
		return 0
	}
	return int((window - l.now().Sub(b.opened)).Round(time.Second).Seconds())
}

// CleanExpired forgets clients idle for more than ten minutes. It makes the
// limiter a cache.Cleaner so the cache manager sweeps it.
func (l *Limiter) CleanExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idleAfter)
	n := 0
	for client, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, client)
			n++
		}
	}
	return n
}

// ActiveClients is the number of clients currently tracked.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Hits counts rejected requests.
func (l *Limiter) Hits() int64 {
	return l.rejected.Load()
}

func isSafe(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// Middleware applies the limit to writes only. onLimit renders the 429 body
// after Retry-After is set; nil falls back to http.Error.
func (l *Limiter) Middleware(clientOf func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafe(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			client := clientOf(r)
			if l.Allow(client) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter(client)))
			if onLimit == nil {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
