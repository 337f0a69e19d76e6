package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"fatura/internal/log"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// Middleware assigns request IDs and logs each request's start and end.
type Middleware struct {
	clientIP func(*http.Request) string
	events   *log.Events
	total    atomic.Int64
}

func NewMiddleware(clientIP func(*http.Request) string, logger *log.Logger) *Middleware {
	if clientIP == nil {
		clientIP = func(r *http.Request) string { return r.RemoteAddr }
	}
	return &Middleware{clientIP: clientIP, events: log.NewEvents(logger)}
}

// Middleware keeps an incoming X-Request-ID when it is a UUID and mints a
// new one otherwise. The ID is echoed in the response.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		m.total.Add(1)

		id := r.Header.Get(HeaderRequestID)
		if uuid.Validate(id) != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		r = r.WithContext(ctx)
		ip := m.clientIP(r)

		m.events.HTTPStarted(ctx, r, ip)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.events.HTTPCompleted(ctx, r, sw.status, time.Since(began).Milliseconds(), ip)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// GetRequestID returns the ID assigned by Middleware, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDFrom adapts GetRequestID for log.Middleware.
func RequestIDFrom(r *http.Request) string {
	return GetRequestID(r.Context())
}

// TotalRequests counts requests seen since start.
func (m *Middleware) TotalRequests() int64 {
	return m.total.Load()
}
