// Package db owns the store handle: connecting, migrating, seeding and closing it.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/mindfuly/internal/config"
	"github.com/diewo77/mindfuly/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const retryDelay = 2 * time.Second

// Open connects to the configured store, retrying while the server comes up.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormLog, err := newGormLogger(cfg.LogLevel)
	if err != nil {
		logger.Warn("invalid DB_LOG_LEVEL, using default", "error", err)
	}
	gormCfg := &gorm.Config{Logger: gormLog, TranslateError: true}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.SQLitePath))
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	attempts := cfg.Retries
	if attempts < 1 {
		attempts = 1
	}
	var conn *gorm.DB
	for i := 1; i <= attempts; i++ {
		conn, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			err = Ping(context.Background(), conn)
		}
		if err == nil {
			break
		}
		logger.Warn("database connection failed", "attempt", i, "of", attempts, "error", err)
		if i < attempts {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after %d attempts: %w", attempts, err)
	}
	logger.Info("database connected", "driver", cfg.Driver, "host", cfg.Host, "dbname", cfg.DBName)
	return conn, nil
}

// OpenSQLite opens a sqlite database with foreign keys enforced.
// dsn may be a file path or a "file:" URI such as an in-memory database.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	gormLog, _ := newGormLogger("silent")
	return gorm.Open(sqlite.Open(sqliteDSN(dsn)), &gorm.Config{Logger: gormLog, TranslateError: true})
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=1"
}

// Ping runs a trivial query against the store.
func Ping(ctx context.Context, conn *gorm.DB) error {
	return conn.WithContext(ctx).Exec("SELECT 1").Error
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("nil database handle")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
