package backend

import (
	"context"
	"fmt"

	"fatura/internal/amqp"
	"fatura/internal/config"
	"fatura/internal/ledger"
	"fatura/internal/services"
)

// Kind names a ledger store implementation.
type Kind string

const (
	KindSQLite Kind = "sqlite"
	KindMemory Kind = "memory"
)

func (k Kind) known() bool {
	return k == KindSQLite || k == KindMemory
}

// Config selects the store and, optionally, the broker that carries
// invoice.changed events. An empty AMQPURL means no events.
type Config struct {
	Type         Kind
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig picks the backend settings out of the process config.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("backend: nil app config")
	}
	c := Config{
		Type:         Kind(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
		AMQPQueue:    cfg.AMQPQueue,
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch {
	case !c.Type.known():
		return fmt.Errorf("backend: unknown DATA_BACKEND %q (want %s or %s)", c.Type, KindSQLite, KindMemory)
	case c.Type == KindSQLite && c.SQLiteDBPath == "":
		return fmt.Errorf("backend: SQLITE_DB_PATH is required for the sqlite store")
	}
	return nil
}

// Result is what a process needs from its backend. Publisher and AMQP are
// nil when no broker is configured or the broker was unreachable.
type Result struct {
	Store     ledger.Store
	Publisher services.Publisher
	AMQP      *amqp.Client
	Ready     func(ctx context.Context) error
	Cleanup   func() error
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}
