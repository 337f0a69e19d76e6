package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger that always carries a component attribute.
// The component is kept apart from the other attributes so WithComponent
// can swap it without duplicating the key.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	attrs     []any
	component string
}

// Config holds logger configuration
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// DefaultConfig logs info and above as text on stdout.
func DefaultConfig() Config {
	return ConfigTo(os.Stdout, "info", "text", ComponentApp)
}

// ConfigFrom builds a Config from the LOG_LEVEL and LOG_FORMAT settings,
// writing to stdout.
func ConfigFrom(level, format, component string) Config {
	return ConfigTo(os.Stdout, level, format, component)
}

// ConfigTo is ConfigFrom for an arbitrary writer. Unknown levels fall back
// to info; format "json" selects the JSON handler, anything else text.
func ConfigTo(w io.Writer, level, format, component string) Config {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	}
	return Config{Level: lvl, Component: component, Handler: handler}
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.Level})
	}
	return build(slog.New(handler), nil, config.Component)
}

func build(base *slog.Logger, attrs []any, component string) *Logger {
	l := base
	if component != "" {
		l = l.With(FieldComponent, component)
	}
	if len(attrs) > 0 {
		l = l.With(attrs...)
	}
	return &Logger{Logger: l, base: base, attrs: attrs, component: component}
}

// With returns a logger with args added to every record.
func (l *Logger) With(args ...any) *Logger {
	attrs := make([]any, 0, len(l.attrs)+len(args))
	attrs = append(append(attrs, l.attrs...), args...)
	return build(l.base, attrs, l.component)
}

// WithComponent returns a copy of l that reports component instead.
func (l *Logger) WithComponent(component string) *Logger {
	return build(l.base, l.attrs, component)
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs logger as the slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
