package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or one wrapping the slog default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return build(slog.Default(), nil, "")
}

// Middleware stores base in the request context, tagged with the request
// id that requestID extracts. A nil requestID skips the tag.
func Middleware(base *Logger, requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base
			if requestID != nil {
				if id := requestID(r); id != "" {
					logger = base.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// Events logs the records whose shape is shared across packages: request
// start and end, saved purchases and invoice transitions.
type Events struct {
	logger *Logger
}

func NewEvents(logger *Logger) *Events {
	return &Events{logger: logger}
}

func (e *Events) HTTPStarted(ctx context.Context, r *http.Request, clientIP string) {
	attrs := append(requestAttrs(r, clientIP), FieldUserAgent, r.UserAgent())
	e.logger.WithComponent(ComponentHTTP).DebugContext(ctx, "HTTP request started", attrs...)
}

// HTTPCompleted logs at warn for 4xx answers and at error for 5xx.
func (e *Events) HTTPCompleted(ctx context.Context, r *http.Request, status int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	attrs := append(requestAttrs(r, clientIP), FieldStatusCode, status, FieldDuration, durationMs)
	e.logger.WithComponent(ComponentHTTP).Log(ctx, level, "HTTP request completed", attrs...)
}

func (e *Events) PurchaseSaved(ctx context.Context, op string, id, cardID, amountCents int64, installments int, category string) {
	attrs := append(purchaseAttrs(id, cardID, amountCents, installments, category), FieldOperation, op)
	e.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Purchase saved", attrs...)
}

func (e *Events) InvoiceStatusChanged(ctx context.Context, id, cardID int64, from, to string) {
	attrs := append(invoiceAttrs(id, cardID, to), FieldOperation, OpTransition, "previous_status", from)
	e.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Invoice status changed", attrs...)
}
