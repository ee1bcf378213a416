// Package testutil provides test helpers including container management
// and test client utilities.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/cory-johannsen/guessword/internal/config"
	"github.com/cory-johannsen/guessword/internal/storage/postgres"
)

// PostgresContainer is a throwaway results database.
type PostgresContainer struct {
	Pool   *postgres.Pool
	Config config.DatabaseConfig
}

// NewPostgresContainer starts PostgreSQL in a container and connects a Pool
// to it. The test is skipped under -short; the container is removed on cleanup.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()
	start := time.Now()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("guessword"),
		tcpostgres.WithUsername("guessword"),
		tcpostgres.WithPassword("guessword"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("getting container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("getting mapped port: %v", err)
	}

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "guessword",
		Password:        "guessword",
		Name:            "guessword",
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}
	pool, err := postgres.NewPool(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("connecting to test postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	t.Logf("postgres container ready [%s]", time.Since(start))
	return &PostgresContainer{Pool: pool, Config: cfg}
}

// ApplyMigrations runs the embedded schema migrations against the container.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	m, err := postgres.NewMigrator(pc.DSN(), zap.NewNop())
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()
	if err := m.Up(0); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
}

// DSN returns the connection string for the test database.
func (pc *PostgresContainer) DSN() string {
	return pc.Config.DSN()
}
