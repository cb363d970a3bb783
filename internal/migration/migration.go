package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrDirtySchema means a previous run stopped halfway through a migration
// and the schema needs manual repair before cycles can be processed.
var ErrDirtySchema = errors.New("dirty_schema")

// Result describes the schema after a run.
type Result struct {
	Version uint
	Applied bool
}

// RunMigrations brings the postgres schema up to the newest embedded version.
func RunMigrations(db *sql.DB) (Result, error) {
	m, err := newMigrator(db)
	if err != nil {
		return Result{}, err
	}

	before, dirty, err := version(m)
	if err != nil {
		return Result{}, err
	}
	if dirty {
		return Result{Version: before}, fmt.Errorf("%w: version %d", ErrDirtySchema, before)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return Result{Version: before}, fmt.Errorf("apply migrations: %w", err)
	}

	after, _, err := version(m)
	if err != nil {
		return Result{}, err
	}
	// m.Close would close the shared *sql.DB.
	return Result{Version: after, Applied: after != before}, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	if db == nil {
		return nil, errors.New("migration database handle is required")
	}
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "payout_schema_migrations"})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}

func version(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return v, dirty, nil
}
