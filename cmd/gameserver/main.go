// Package main provides the guessword game server binary: it loads
// configuration, builds the service graph and runs it until a termination signal.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cory-johannsen/guessword/internal/config"
	"github.com/cory-johannsen/guessword/internal/observability"
)

func main() {
	start := time.Now()

	fs := pflag.NewFlagSet("gameserver", pflag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file (defaults only when empty)")
	fs.String("host", "0.0.0.0", "game listener bind address")
	fs.Int("port", 13000, "game listener TCP port")
	fs.String("puzzles", "puzzles", "directory containing puzzle files")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "json", "log format: json or console")
	fs.String("log-file", "", "additional log output file")
	fs.Bool("history", false, "record finished games in PostgreSQL")
	fs.Int("health-port", 13001, "gRPC health service port")
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

	logger.Info("starting guessword server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("puzzles", cfg.Puzzles.Dir),
		zap.Bool("history", cfg.History.Enabled),
		zap.Bool("health", cfg.Health.Enabled),
	)

	ctx := context.Background()
	app, cleanup, err := initializeApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("initializing server", zap.Error(err))
	}

	logger.Info("guessword server initialized", zap.Duration("startup", time.Since(start)))

	runErr := app.Lifecycle.Run(ctx)
	cleanup()
	if runErr != nil {
		logger.Error("server stopped with error", zap.Error(runErr))
		_ = logger.Sync()
		os.Exit(1)
	}
}
