package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"travel-booking/internal/config"
	"travel-booking/internal/database"
	"travel-booking/internal/database/migrations"
	"travel-booking/internal/logger"
	"travel-booking/internal/models"
)

func main() {
	action := flag.String("action", "up", "up, down, to, version or reset")
	target := flag.Uint("version", 0, "target version for -action=to")
	seed := flag.Bool("seed", false, "insert the sample tours")
	flag.Parse()

	log := logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()
	ctx := context.Background()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.Driver == database.DriverSQLite {
		if err := migrateSQLite(ctx, bunDB, *action, *seed, log); err != nil {
			log.Fatal("MIGRATION", err.Error())
		}
		log.Info("MIGRATION", "✅ Done.")
		return
	}

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
		Driver:        cfg.Database.Driver,
		MigrationsDir: cfg.Migrations.Dir,
		SeedData:      *seed,
	}, log)
	if err := runner.Initialize(); err != nil {
		log.Fatal("MIGRATION", err.Error())
	}
	defer runner.Close()

	switch *action {
	case "up":
		err = runner.RunMigrations()
	case "down":
		err = runner.MigrateDown()
	case "to":
		err = runner.MigrateTo(*target)
	case "reset":
		if err = runner.MigrateDown(); err == nil {
			err = runner.RunMigrations()
		}
	case "version":
		version, dirty, verr := runner.Version()
		if verr != nil {
			log.Fatal("MIGRATION", verr.Error())
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", *action)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("MIGRATION", err.Error())
	}
	log.Info("MIGRATION", "✅ Done.")
}

// migrateSQLite builds the schema from the models; sqlite has no SQL migrations.
func migrateSQLite(ctx context.Context, db *bun.DB, action string, seed bool, log *logger.Logger) error {
	switch action {
	case "up":
	case "reset", "down":
		log.Info("MIGRATION", "Dropping tables...")
		for _, m := range []interface{}{(*models.Booking)(nil), (*models.Tour)(nil), (*models.User)(nil)} {
			if _, err := db.NewDropTable().Model(m).IfExists().Exec(ctx); err != nil {
				return fmt.Errorf("drop %T: %w", m, err)
			}
		}
		if action == "down" {
			return nil
		}
	default:
		return fmt.Errorf("action %q is not supported for sqlite", action)
	}

	log.Info("MIGRATION", "Creating tables...")
	if err := database.CreateSchema(ctx, db); err != nil {
		return err
	}
	if !seed {
		return nil
	}
	log.Info("MIGRATION", "Seeding sample tours...")
	return seedTours(ctx, db)
}

func seedTours(ctx context.Context, db *bun.DB) error {
	n, err := db.NewSelect().Model((*models.Tour)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	now := time.Now().UTC()
	date := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}
	tours := []models.Tour{
		{Title: "Alpine Lakes Trek", Description: "Five days of guided hiking between glacier lakes.", Location: "Interlaken", Price: decimal.RequireFromString("1299.00"), Date: date("2027-06-12"), Image: "alpine-lakes.jpg", Capacity: 20, CreatedAt: now},
		{Title: "Kyoto Temples and Tea", Description: "Temple walks and a private tea ceremony.", Location: "Kyoto", Price: decimal.RequireFromString("1850.00"), Date: date("2027-04-02"), Image: "kyoto.jpg", Capacity: 12, CreatedAt: now},
		{Title: "Patagonia Wild Coast", Description: "Whale watching and coastal camping.", Location: "Puerto Madryn", Price: decimal.RequireFromString("2100.50"), Date: date("2027-11-20"), Image: "patagonia.jpg", Capacity: 8, CreatedAt: now},
		{Title: "Sahara Night Camp", Description: "Camel ride into the dunes with a night under the stars.", Location: "Merzouga", Price: decimal.RequireFromString("640.00"), Date: date("2027-03-15"), Image: "sahara.jpg", Capacity: 16, CreatedAt: now},
	}
	_, err = db.NewInsert().Model(&tours).Exec(ctx)
	return err
}
