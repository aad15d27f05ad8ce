package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/mindfuly/internal/logger"
	"github.com/diewo77/mindfuly/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// DefaultMigrationsSource is where the versioned SQL migrations live relative to the working directory.
const DefaultMigrationsSource = "file://migrations"

// requiredTables must exist once the schema is up to date.
var requiredTables = []string{"users", "mood_logs"}

// Migrate brings the schema up to date. When databaseURL is set the versioned SQL
// migrations are applied through golang-migrate; otherwise the models are AutoMigrated.
func Migrate(conn *gorm.DB, source, databaseURL string) error {
	if databaseURL != "" {
		logger.Info("running sql migrations", "source", source)
		if err := runSQLMigrations(source, databaseURL); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else if err := AutoMigrate(conn); err != nil {
		return err
	}
	return checkTables(conn)
}

// AutoMigrate creates or updates tables from the model definitions.
func AutoMigrate(conn *gorm.DB) error {
	for _, m := range []any{&models.User{}, &models.MoodLog{}} {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// runSQLMigrations executes migrations from source using golang-migrate.
func runSQLMigrations(source, databaseURL string) error {
	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.Warn("closing migrator", "error", err)
		}
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	version, dirty, err := m.Version()
	if err == nil {
		logger.Info("schema version", "version", version, "dirty", dirty)
	}
	return nil
}

func checkTables(conn *gorm.DB) error {
	for _, table := range requiredTables {
		if !conn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}
