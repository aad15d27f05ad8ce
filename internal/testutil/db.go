// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/diewo77/mindfuly/internal/db"
	"gorm.io/gorm"
)

// SetupTestDB returns a migrated in-memory sqlite database unique to the calling test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.OpenSQLite("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	return conn
}
