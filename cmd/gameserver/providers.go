package main

import (
	"context"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/guessword/internal/config"
	"github.com/cory-johannsen/guessword/internal/game/engine"
	"github.com/cory-johannsen/guessword/internal/game/session"
	"github.com/cory-johannsen/guessword/internal/gameserver"
	"github.com/cory-johannsen/guessword/internal/health"
	"github.com/cory-johannsen/guessword/internal/history"
	"github.com/cory-johannsen/guessword/internal/observability"
	"github.com/cory-johannsen/guessword/internal/puzzle"
	"github.com/cory-johannsen/guessword/internal/server"
	"github.com/cory-johannsen/guessword/internal/storage/postgres"
)

// App is the assembled server process.
type App struct {
	Lifecycle *server.Lifecycle
	Server    *gameserver.Server
}

var providerSet = wire.NewSet(
	wire.FieldsOf(new(config.Config), "Server"),
	session.NewRegistry,
	providePuzzleLoader,
	provideIDGenerator,
	provideRecorder,
	provideEngine,
	provideHealthServer,
	provideStatusReporter,
	gameserver.NewServer,
	provideLifecycle,
	wire.Struct(new(App), "*"),
)

func providePuzzleLoader(cfg config.Config, logger *zap.Logger) engine.PuzzleLoader {
	loader := puzzle.NewLoader(cfg.Puzzles.Dir, puzzle.NewCryptoSource())
	files, err := loader.Files()
	switch {
	case err != nil:
		logger.Warn("puzzle directory unreadable", zap.String("dir", cfg.Puzzles.Dir), zap.Error(err))
	case len(files) == 0:
		logger.Warn("puzzle directory has no puzzles", zap.String("dir", cfg.Puzzles.Dir))
	default:
		logger.Info("puzzles available", zap.String("dir", cfg.Puzzles.Dir), zap.Int("count", len(files)))
	}
	return loader
}

func provideIDGenerator() engine.IDGenerator {
	return engine.UUIDGenerator{}
}

// provideRecorder connects the history archive when enabled. The cleanup
// drains queued results before closing the pool.
func provideRecorder(ctx context.Context, cfg config.Config, logger *zap.Logger) (history.Recorder, func(), error) {
	if !cfg.History.Enabled {
		return history.Nop{}, func() {}, nil
	}

	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Name),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	rec := history.NewAsyncRecorder(postgres.NewResultRepository(pool.DB()), cfg.History.Buffer, observability.Component(logger, "history"))
	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := rec.Close(closeCtx); err != nil {
			logger.Warn("closing history recorder", zap.Error(err))
		}
		pool.Close()
	}
	return rec, cleanup, nil
}

func provideEngine(registry *session.Registry, loader engine.PuzzleLoader, ids engine.IDGenerator, recorder history.Recorder, logger *zap.Logger) *engine.Engine {
	return engine.New(registry, loader, ids, recorder, observability.Component(logger, "engine"))
}

func provideHealthServer(cfg config.Config, logger *zap.Logger) *health.Server {
	return health.NewServer(cfg.Health, observability.Component(logger, "health"))
}

func provideStatusReporter(cfg config.Config, hs *health.Server) gameserver.StatusReporter {
	if !cfg.Health.Enabled {
		return nil
	}
	return hs
}

func provideLifecycle(cfg config.Config, logger *zap.Logger, hs *health.Server, gs *gameserver.Server) *server.Lifecycle {
	lc := server.NewLifecycle(logger)
	if cfg.Health.Enabled {
		lc.Add("health", hs)
	}
	lc.Add("game", gs)
	return lc
}
