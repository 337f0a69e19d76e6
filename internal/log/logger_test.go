package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestConfigFrom_JSON(t *testing.T) {
	cfg := ConfigFrom("debug", "json", ComponentLedger)
	assert.Equal(t, slog.LevelDebug, cfg.Level)
	assert.IsType(t, &slog.JSONHandler{}, cfg.Handler)
	assert.Equal(t, ComponentLedger, cfg.Component)

	assert.IsType(t, &slog.TextHandler{}, ConfigFrom("info", "text", ComponentApp).Handler)
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: slog.NewJSONHandler(&buf, nil), Component: ComponentHTTP})

	logger.WithComponent(ComponentAuth).InfoContext(context.Background(), "signed in", FieldUserID, 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, ComponentAuth, entry[FieldComponent])
	assert.Equal(t, float64(7), entry[FieldUserID])
}
