// Package database opens the GORM connection backing every tenant-scoped
// repository in this module (postgres in production, sqlite for local
// development and tests), and exposes a raw *sql.DB for the few call sites
// (atomic counters, row-level locks) that need hand-written SQL.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/convocommerce/backend/platform/config"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open initializes a GORM connection based on the given configuration.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Database.Driver {
	case "postgres":
		dsn := cfg.Database.URL
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
				cfg.Database.Host, cfg.Database.User, cfg.Database.Password,
				cfg.Database.Name, cfg.Database.Port)
		}
		dialector = postgres.Open(dsn)
	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", cfg.Database.Name)
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", cfg.Database.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: underlying sql.DB: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetMaxIdleConns(10)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// OpenRaw opens a *sql.DB via jackc/pgx's stdlib adapter, for the handful
// of call sites (wallet's SELECT ... FOR UPDATE, atomic counter updates)
// that bypass the ORM and need direct transaction control.
func OpenRaw(cfg *config.Config) (*sql.DB, error) {
	if cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("database: raw pgx connections require the postgres driver")
	}
	dsn := cfg.Database.URL
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
			cfg.Database.Host, cfg.Database.User, cfg.Database.Password,
			cfg.Database.Name, cfg.Database.Port)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open raw: %w", err)
	}
	return db, nil
}

// registers the pgx stdlib driver under the "pgx" name used by OpenRaw.
var _ = stdlib.GetDefaultDriver
