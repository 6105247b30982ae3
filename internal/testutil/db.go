package testutil

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/localnerve/salesops/data"
	"github.com/localnerve/salesops/internal/database"
	"github.com/localnerve/salesops/internal/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB opens a migrated, CGO-free SQLite database in a per-test temp dir.
// The upstream price simulation table is created from the embedded DDL.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "salesops.db")
	db, err := database.Open(sqlite.Open(path), gormlogger.Silent)
	if err != nil {
		tb.Fatalf("Failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("Failed to get underlying SQL DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		tb.Fatalf("Failed to migrate test database: %v", err)
	}
	if err := db.Exec(data.InitdbSQLiteSimulation).Error; err != nil {
		tb.Fatalf("Failed to create simulation table: %v", err)
	}

	return db
}

// Logger returns a discarding logger
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}
