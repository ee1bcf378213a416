// Package main provides the schema migration runner for the game history database.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cory-johannsen/guessword/internal/config"
	"github.com/cory-johannsen/guessword/internal/observability"
	"github.com/cory-johannsen/guessword/internal/storage/postgres"
)

func main() {
	start := time.Now()

	fs := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	direction := fs.String("direction", "up", "migration direction: up or down")
	steps := fs.Int("steps", 0, "number of steps (0 = all)")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "console", "log format: json or console")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	m, err := postgres.NewMigrator(cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("creating migrator", zap.Error(err))
	}
	defer m.Close()

	if err := run(m, *direction, *steps); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	version, dirty, err := m.Version()
	if err != nil {
		logger.Fatal("reading schema version", zap.Error(err))
	}
	logger.Info("migration complete",
		zap.String("direction", *direction),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Duration("elapsed", time.Since(start)),
	)
}

type migrator interface {
	Up(steps int) error
	Down(steps int) error
}

func run(m migrator, direction string, steps int) error {
	switch direction {
	case "up":
		return m.Up(steps)
	case "down":
		return m.Down(steps)
	default:
		return fmt.Errorf("invalid direction %q: must be 'up' or 'down'", direction)
	}
}
