// Package log wraps log/slog with the conventions the dashboard logs by:
// every logger is permanently bound to the subsystem it reports for, and
// handlers pull a request-scoped logger out of the context instead of
// sharing a global one.
package log

import (
	"log/slog"
	"os"
)

// Logger is a slog.Logger bound to a component attribute. The slog methods
// (Info, WarnContext, ...) are promoted; With and WithComponent return the
// wrapper so the binding survives enrichment.
type Logger struct {
	*slog.Logger
	base      *slog.Logger // unbound root, kept for component rebinding
	component string
}

// Config holds logger construction options.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// DefaultConfig is the production setup: text output on stdout at info,
// bound to the app component.
func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo, Component: ComponentApp}
}

// New builds a logger from the config. A nil Handler gets a stdout text
// handler honoring Config.Level; an empty Component falls back to the app
// component.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.Level})
	}
	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	base := slog.New(handler)
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

// With returns a logger carrying additional attributes on top of the
// component binding.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		base:      l.base,
		component: l.component,
	}
}

// WithComponent rebinds the logger to another subsystem. Attributes added
// with With after the original binding do not carry over; rebind first.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.base.With(FieldComponent, component),
		base:      l.base,
		component: component,
	}
}

// Component returns the bound component name.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs the logger as the process-wide slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
