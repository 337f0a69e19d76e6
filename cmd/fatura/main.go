package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"fatura/internal/backend"
	"fatura/internal/cache"
	"fatura/internal/cli"
	"fatura/internal/config"
	"fatura/internal/core"
	fhttp "fatura/internal/http"
	"fatura/internal/log"
	"fatura/internal/services"
	"fatura/internal/session"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	policy, err := core.PolicyFor(cfg.InvoiceStatusPolicy)
	if err != nil {
		return err
	}
	opts := []services.Option{services.WithPolicy(policy)}
	if result.Publisher != nil {
		opts = append(opts, services.WithPublisher(result.Publisher))
	}
	ledgerSvc := services.NewLedgerService(result.Store, opts...)

	sessions := session.NewStore(cfg.SessionMax, cfg.SessionTTL)
	authSvc := services.NewAuthService(result.Store, sessions)

	srv := fhttp.NewServer(fhttp.Options{
		Addr:               ":" + cfg.Port,
		Ledger:             ledgerSvc,
		Auth:               authSvc,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              result.Ready,
	})

	caches := cache.NewManager(logger)
	caches.Register("sessions", sessions.Cleaner())
	caches.Register("rate_limit", srv.Cleaner())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting fatura server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"status_policy", cfg.InvoiceStatusPolicy,
			"events", result.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return caches.Run(gctx, cfg.CacheCleanInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})

	return g.Wait()
}
