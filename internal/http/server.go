package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"fatura/internal/cache"
	"fatura/internal/log"
	"fatura/internal/middleware/ratelimit"
	"fatura/internal/middleware/security"
	"fatura/internal/middleware/trace"
	"fatura/internal/services"
)

// Options wires the server to its services.
type Options struct {
	Addr               string
	Ledger             *services.LedgerService
	Auth               *services.AuthService
	Logger             *log.Logger
	RateLimitPerMinute int
	// Ready reports whether storage and messaging are usable. Nil means
	// always ready.
	Ready func(context.Context) error
}

type Server struct {
	http.Server
	ledger   *services.LedgerService
	auth     *services.AuthService
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	ready    func(context.Context) error
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	s := &Server{
		ledger:   opts.Ledger,
		auth:     opts.Auth,
		detector: security.NewDetector(),
		ready:    opts.Ready,
		started:  time.Now(),
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		s.tracer.Middleware,
		log.Middleware(logger, trace.RequestIDFrom),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.detector.Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
		}),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Post("/cookie/signup", s.handleSignUp)
		r.Post("/cookie/signin", s.handleSignIn)
		r.Post("/cookie/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Post("/cookie/refresh", s.handleRefresh)
			r.Get("/panel", s.handlePanel)

			r.Route("/creditcard", func(r chi.Router) {
				r.Get("/", s.handleListCards)
				r.Post("/", s.handleCreateCard)
				r.Post("/subscription", s.handleCreateSubscription)

				r.Post("/purchase", s.handleCreatePurchase)
				r.Get("/purchase/{id}", s.handleGetPurchase)
				r.Put("/purchase/update/{id}", s.handleUpdatePurchase)
				r.Delete("/purchase/{id}", s.handleDeletePurchase)

				r.Get("/invoice/{id}", s.handleGetInvoice)
				r.Put("/invoice/{id}", s.handleUpdateEstimate)
				r.Put("/invoice/change-status/{id}/{status}", s.handleChangeStatus)

				r.Get("/{id}", s.handleGetCard)
				r.Put("/{id}", s.handleUpdateCard)
				r.Get("/{id}/invoice/current", s.handleCurrentInvoice)
			})
		})
	})
	return r
}

// Shutdown drains the HTTP server. Later calls return the first result.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Cleaner exposes the rate limiter's client table to a cache.Manager.
func (s *Server) Cleaner() cache.Cleaner {
	return s.limiter
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks storage and messaging through the backend health check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]any{
		"requests_total":      s.tracer.TotalRequests(),
		"rate_limited":        s.limiter.Hits(),
		"suspicious_requests": s.detector.Flagged(),
	}
	status, code := "ready", http.StatusOK
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			checks["backend"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status": status,
		"checks": checks,
	}).Write(w)
}
