package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"

	"travel-booking/internal/config"
	"travel-booking/internal/logger"
	"travel-booking/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

var retryDelay = 2 * time.Second

// Open builds the connection pool shared by every storage layer.
// MySQL DSNs need parseTime=true so DATE columns scan into time.Time.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	driverName, dialect, err := resolveDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}

	var sqldb *sql.DB
	for i := 0; i < retries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Connecting to %s (attempt %d/%d)", cfg.Driver, i+1, retries))
		sqldb, err = sql.Open(driverName, cfg.DSN)
		if err == nil {
			err = sqldb.PingContext(ctx)
			if err == nil {
				break
			}
			sqldb.Close()
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", cfg.Driver, err))
		if i < retries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s after %d attempts: %w", cfg.Driver, retries, err)
	}

	switch {
	case cfg.Driver == DriverSQLite:
		// SQLite has no row locks: one connection serializes admissions
		// instead of failing the loser with SQLITE_BUSY.
		if cfg.MaxOpenConns != 1 {
			log.Warn("DATABASE", fmt.Sprintf("Ignoring DB_MAX_OPEN_CONNS=%d for sqlite, using a single connection", cfg.MaxOpenConns))
		}
		sqldb.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	log.Info("DATABASE", fmt.Sprintf("✅ %s connection successful", cfg.Driver))
	return bun.NewDB(sqldb, dialect), nil
}

func resolveDriver(driver string) (string, schema.Dialect, error) {
	switch driver {
	case DriverPostgres:
		return "postgres", pgdialect.New(), nil
	case DriverMySQL:
		return "mysql", mysqldialect.New(), nil
	case DriverSQLite:
		return sqliteshim.ShimName, sqlitedialect.New(), nil
	default:
		return "", nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// CreateSchema creates the tables from the bun models. Postgres and MySQL
// deployments use the SQL migrations instead; this serves sqlite and tests.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*models.User)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*models.Tour)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create tours table: %w", err)
	}
	_, err := db.NewCreateTable().
		Model((*models.Booking)(nil)).
		IfNotExists().
		ForeignKey(`("tour_id") REFERENCES "tours" ("id") ON DELETE RESTRICT`).
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE SET NULL`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create bookings table: %w", err)
	}
	_, err = db.NewCreateIndex().
		Model((*models.Booking)(nil)).
		Index("bookings_tour_id_idx").
		Column("tour_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create bookings index: %w", err)
	}
	return nil
}
