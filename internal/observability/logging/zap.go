package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap converts the builder into zap.Field values, in an order that is
// otherwise insignificant since zap emits object output, not arrays.
func (f Fields) Zap() []zap.Field {
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}

// New builds a production zap.Logger. Any construction error is
// treated as fatal: a copilot that cannot log should not start.
func New() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}

// NewWithConfig builds a zap.Logger honoring an ambient level
// ("debug"/"info"/"warn"/"error") and format ("json"/"console"), for
// processes whose logging is driven by on-disk configuration rather
// than always running with New's production defaults.
func NewWithConfig(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
