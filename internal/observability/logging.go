// Package observability provides logging for the game server.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/guessword/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
// When cfg.File is set, entries are appended to that file as well as stderr.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	// Debug output is never sampled.
	if level == zapcore.DebugLevel {
		zapCfg.Sampling = nil
	}
	if cfg.File != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.File)
		zapCfg.ErrorOutputPaths = append(zapCfg.ErrorOutputPaths, cfg.File)
	}

	logger, err := zapCfg.Build(zap.Fields(zap.String("service", "guessword")))
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// Component returns a child logger named after a server component.
func Component(logger *zap.Logger, name string) *zap.Logger {
	return logger.Named(name).With(zap.String("component", name))
}
