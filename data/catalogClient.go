package data

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/data/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

const connTimeout = time.Second

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// NewCatalogClient connects to the catalog database and applies the embedded
// migrations.
func NewCatalogClient(cfg *config.Config) (*sqlx.DB, error) {
	driverName, dsn := catalogDSN(cfg.Catalog)

	connAttempts := cfg.Catalog.ConnAttempts
	if connAttempts < 1 {
		connAttempts = 1
	}

	var db *sqlx.DB
	var err error

	for connAttempts > 0 {
		db, err = sqlx.Connect(driverName, dsn)
		if err == nil {
			break
		}

		slog.Info("catalog is trying to connect", slog.String("driver", driverName), slog.Int("attempts left", connAttempts))

		connAttempts--
		if connAttempts > 0 {
			time.Sleep(connTimeout)
		}
	}

	if err != nil {
		slog.Error("catalog connAttempts = 0", slog.String("err", err.Error()))
		return nil, fmt.Errorf("connect catalog: %w", err)
	}

	db.SetMaxOpenConns(cfg.Catalog.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.Catalog.ConnMaxLifetime)
	slog.Info("catalog connected", slog.String("driver", driverName))

	if err = migrateCatalog(db, driverName); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("catalog migrated successfully")

	return db, nil
}

func catalogDSN(cfg config.Catalog) (driverName, dsn string) {
	if cfg.Driver == "pgx" {
		return "pgx", cfg.DSN
	}

	dsn = cfg.DSN
	if !strings.Contains(dsn, "_pragma=busy_timeout") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)"
	}
	return "sqlite", dsn
}

func migrateCatalog(db *sqlx.DB, driverName string) error {
	var (
		driver database.Driver
		err    error
	)

	switch driverName {
	case "pgx":
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
	default:
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	}
	if err != nil {
		slog.Error("catalog migration failed on WithInstance", slog.String("err", err.Error()))
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, driver)
	if err != nil {
		slog.Error("catalog migration failed on migrate.NewWithInstance", slog.String("err", err.Error()))
		return fmt.Errorf("migration init: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		slog.Error("catalog migration failed on m.Up()", slog.String("err", err.Error()))
		return fmt.Errorf("migration up: %w", err)
	}

	return nil
}
