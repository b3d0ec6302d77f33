package migrations

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/uptrace/bun"

	"travel-booking/internal/logger"
)

// schemaVersion is the last migration that only creates tables.
// Later versions insert seed data.
const schemaVersion uint = 1

// MigrateOptions defines configuration options for migration
type MigrateOptions struct {
	// Driver selects the SQL subdirectory (postgres or mysql)
	Driver string
	// MigrationsDir is the root directory holding one subdirectory per driver
	MigrationsDir string
	// SeedData runs the seed migrations on top of the schema
	SeedData bool
}

// Runner applies versioned SQL migrations to the bookings database.
type Runner struct {
	bunDB    *bun.DB
	options  MigrateOptions
	logger   *logger.Logger
	migrator *migrate.Migrate
}

func NewRunner(bunDB *bun.DB, opts MigrateOptions, log *logger.Logger) *Runner {
	return &Runner{
		bunDB:   bunDB,
		options: opts,
		logger:  log,
	}
}

// SourceDir returns the directory the runner reads migrations from.
func (r *Runner) SourceDir() string {
	return filepath.Join(r.options.MigrationsDir, r.options.Driver)
}

func (r *Runner) Initialize() error {
	var (
		driver database.Driver
		err    error
	)
	if r.options.Driver != "postgres" && r.options.Driver != "mysql" {
		return fmt.Errorf("migrations are not available for driver %q", r.options.Driver)
	}

	dir := r.SourceDir()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("migrations directory does not exist: %s", dir)
	}

	// A dedicated connection: closing the migrator must not close the pool.
	ctx := context.Background()
	conn, err := r.bunDB.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get a connection for migrations: %w", err)
	}
	if r.options.Driver == "postgres" {
		driver, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
	} else {
		driver, err = mysql.WithConnection(ctx, conn, &mysql.Config{})
	}
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create %s migration driver: %w", r.options.Driver, err)
	}

	migrator, err := migrate.NewWithDatabaseInstance("file://"+dir, r.options.Driver, driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	r.migrator = migrator
	return nil
}

// RunMigrations brings the schema up to date. Without SeedData it stops at
// the schema version and repairs a dirty state left by an interrupted run.
func (r *Runner) RunMigrations() error {
	if err := r.ensureMigrator(); err != nil {
		return err
	}

	if r.options.SeedData {
		r.logger.Info("MIGRATIONS", "Running all migrations including seed data...")
		if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	} else {
		r.logger.Info("MIGRATIONS", "Running schema migrations only...")
		version, dirty, err := r.migrator.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("failed to get migration version: %w", err)
		}

		switch {
		case dirty:
			r.logger.Warn("MIGRATIONS", fmt.Sprintf("Detected dirty migration %d, forcing clean state", version))
			if err := r.migrator.Force(int(version)); err != nil {
				return fmt.Errorf("failed to fix dirty migration: %w", err)
			}
		case errors.Is(err, migrate.ErrNilVersion) || version < schemaVersion:
			if err := r.migrator.Migrate(schemaVersion); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to run schema migration: %w", err)
			}
		}
	}

	version, _, err := r.migrator.Version()
	if err == nil {
		r.logger.Info("MIGRATIONS", fmt.Sprintf("Current schema version: %d", version))
	} else if !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	return nil
}

func (r *Runner) MigrateUp() error {
	if err := r.ensureMigrator(); err != nil {
		return err
	}
	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back all migrations
func (r *Runner) MigrateDown() error {
	if err := r.ensureMigrator(); err != nil {
		return err
	}
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

func (r *Runner) MigrateTo(version uint) error {
	if err := r.ensureMigrator(); err != nil {
		return err
	}
	if err := r.migrator.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}
	return nil
}

// Version reports the applied version; zero means nothing has run yet.
func (r *Runner) Version() (uint, bool, error) {
	if err := r.ensureMigrator(); err != nil {
		return 0, false, err
	}
	version, dirty, err := r.migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (r *Runner) Close() error {
	if r.migrator != nil {
		sourceErr, databaseErr := r.migrator.Close()
		if sourceErr != nil {
			return fmt.Errorf("error closing migrator source: %w", sourceErr)
		}
		if databaseErr != nil {
			return fmt.Errorf("error closing migrator database: %w", databaseErr)
		}
	}
	return nil
}

func (r *Runner) ensureMigrator() error {
	if r.migrator == nil {
		return r.Initialize()
	}
	return nil
}
