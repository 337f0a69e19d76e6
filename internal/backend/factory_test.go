package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatura/internal/config"
	"fatura/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	require.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	require.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", AMQPQueue: "q"})
	require.NoError(t, err)
	assert.Equal(t, KindSQLite, cfg.Type)
	assert.Equal(t, "x.db", cfg.SQLiteDBPath)
	assert.Equal(t, "q", cfg.AMQPQueue)
}

func TestCreateBackend_Memory(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: KindMemory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	assert.Nil(t, res.Publisher)
	assert.Nil(t, res.AMQP)
	assert.NoError(t, res.Ready(context.Background()))

	u, err := res.Store.CreateUser(context.Background(), core.User{Username: "maria"})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
}

func TestCreateBackend_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fatura.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: KindSQLite, SQLiteDBPath: path})
	require.NoError(t, err)
	assert.NoError(t, res.Ready(context.Background()))
	assert.NoError(t, res.Cleanup())
}

func TestCreateBackend_Invalid(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: "sheets"})
	require.Error(t, err)

	_, err = NewFactory(nil).CreateBackend(context.Background(), Config{Type: KindSQLite})
	require.Error(t, err)
}
