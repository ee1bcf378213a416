// Package postgres stores finished-game results in PostgreSQL using pgx v5
// and manages the schema with embedded golang-migrate migrations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/guessword/internal/config"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

// Pool wraps a pgx connection pool with health-check and lifecycle methods.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool creates a connection pool and waits for the database to answer a
// ping. The ping is retried with a linear backoff so the game server can
// start alongside its database.
//
// Precondition: cfg must contain valid database connection parameters; logger must be non-nil.
// Postcondition: Returns a connected Pool or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			pool.Close()
			return nil, fmt.Errorf("pinging database after %d attempts: %w", attempt, err)
		}
		logger.Warn("database not ready",
			zap.String("host", cfg.Host),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, fmt.Errorf("waiting for database: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * connectBackoff):
		}
	}

	return &Pool{pool: pool}, nil
}

// Health checks that the database is reachable within the given timeout.
//
// Precondition: The pool must not be closed.
// Postcondition: Returns nil if the database responds within the timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases all pool resources.
//
// Postcondition: The pool is no longer usable after calling Close.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool for use by repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
