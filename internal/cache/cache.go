package cache

import (
	"context"
	"time"

	"fatura/internal/log"
)

// Cache is a string-keyed store whose entries expire.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	SetWithTTL(key string, data T, ttl time.Duration)
	Delete(key string)
	Size() int
}

// Cleaner drops expired entries and reports how many went.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps a set of named Cleaners on a timer.
type Manager struct {
	names    []string
	cleaners []Cleaner
	logger   *log.Logger
}

// NewManager returns an empty manager. A nil logger logs through slog's
// default handler.
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &Manager{logger: logger.WithComponent(log.ComponentCache)}
}

func (m *Manager) Register(name string, c Cleaner) {
	m.names = append(m.names, name)
	m.cleaners = append(m.cleaners, c)
}

// CleanAll sweeps every cleaner once and returns the total dropped.
func (m *Manager) CleanAll() int {
	total := 0
	for i, c := range m.cleaners {
		if n := c.CleanExpired(); n > 0 {
			m.logger.Debug("Expired entries removed", "cache", m.names[i], "removed", n)
			total += n
		}
	}
	return total
}

// Run calls CleanAll every interval until ctx ends. It always returns nil
// so it can sit in an errgroup next to the server.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.CleanAll()
		}
	}
}
