package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fatura/internal/amqp"
	"fatura/internal/ledger"
	"fatura/internal/ledger/memory"
	"fatura/internal/log"
	"fatura/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store ledger.Store
		ready func(context.Context) error
	)
	switch config.Type {
	case KindSQLite:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store, ready = repo, repo.Ping
		f.logger.InfoContext(ctx, "Initialized SQLite backend",
			log.FieldComponent, log.ComponentStorage,
			"db_path", config.SQLiteDBPath)
	case KindMemory:
		store = memory.New()
		ready = func(context.Context) error { return nil }
		f.logger.InfoContext(ctx, "Initialized memory backend",
			log.FieldComponent, log.ComponentStorage)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	result := &Result{Store: store, Ready: ready}

	// AMQP is optional: without it the ledger simply stops announcing changes.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
				log.FieldComponent, log.ComponentAMQP,
				log.FieldError, err)
		} else {
			result.AMQP = client
			result.Publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				log.FieldComponent, log.ComponentAMQP,
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if result.AMQP != nil {
			errs = append(errs, result.AMQP.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return result, nil
}
