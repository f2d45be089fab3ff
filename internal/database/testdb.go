package database

import (
	"testing"

	"gorm.io/gorm"
)

// NewTestDB opens a migrated in-memory SQLite database, installs it as DB
// and restores the previous handle when the test ends.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := Open("sqlite", ":memory:", "silent")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	prev := DB
	DB = db
	t.Cleanup(func() {
		DB = prev
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
