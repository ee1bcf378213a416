package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded schema migrations.
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// NewMigrator opens a migrator against the database at dsn.
//
// Precondition: dsn must be a postgres:// URL; logger must be non-nil.
func NewMigrator(dsn string, logger *zap.Logger) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return &Migrator{m: m, logger: logger}, nil
}

// Up applies all pending migrations, or the next steps migrations when steps > 0.
//
// Postcondition: Returns nil when the schema is current, including when there was nothing to apply.
func (g *Migrator) Up(steps int) error {
	var err error
	if steps > 0 {
		err = g.m.Steps(steps)
	} else {
		err = g.m.Up()
	}
	return g.finish("up", err)
}

// Down reverts the last steps migrations, or all of them when steps <= 0.
func (g *Migrator) Down(steps int) error {
	var err error
	if steps > 0 {
		err = g.m.Steps(-steps)
	} else {
		err = g.m.Down()
	}
	return g.finish("down", err)
}

func (g *Migrator) finish(direction string, err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		g.logger.Info("schema unchanged", zap.String("direction", direction))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrating %s: %w", direction, err)
	}
	version, dirty, _ := g.m.Version()
	g.logger.Info("schema migrated",
		zap.String("direction", direction),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Version returns the current schema version.
func (g *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = g.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the migrator's source and database handles.
func (g *Migrator) Close() error {
	sourceErr, dbErr := g.m.Close()
	return errors.Join(sourceErr, dbErr)
}
