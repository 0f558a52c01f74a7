package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a structured zap.Logger using the provided level (info, warn, debug, error).
func New(level string) (*zap.Logger, zap.AtomicLevel, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level == "" {
		level = "info"
	}

	atomic := zap.NewAtomicLevel()
	if err := atomic.UnmarshalText([]byte(level)); err != nil {
		return nil, atomic, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = atomic

	logger, err := cfg.Build()
	if err != nil {
		return nil, atomic, err
	}

	zap.ReplaceGlobals(logger)
	return logger, atomic, nil
}

// SetLevel swaps the level of a running logger. Empty or unknown levels are ignored.
func SetLevel(atomic zap.AtomicLevel, level string) bool {
	if level == "" {
		return false
	}
	var next zapcore.Level
	if err := next.UnmarshalText([]byte(level)); err != nil {
		return false
	}
	if atomic.Level() == next {
		return false
	}
	atomic.SetLevel(next)
	return true
}
