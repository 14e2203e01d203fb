package database

import (
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) (*DB, string) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "nested", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db, dbPath
}

func TestOpen(t *testing.T) {
	db, dbPath := setupTestDB(t)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if db.Path() != dbPath {
		t.Errorf("Expected path %s, got %s", dbPath, db.Path())
	}

	var version string
	if err := db.Conn().QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		t.Errorf("Failed to query SQLite version: %v", err)
	}
	if version == "" {
		t.Error("SQLite version should not be empty")
	}
}

func TestJournalModeIsWAL(t *testing.T) {
	db, _ := setupTestDB(t)

	var mode string
	if err := db.Conn().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("Failed to read journal mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("Expected wal journal mode, got %s", mode)
	}
}

func TestVecExtension(t *testing.T) {
	db, _ := setupTestDB(t)

	if !db.HasVec() {
		t.Skip("sqlite-vec not available in this build")
	}
	if _, err := db.Conn().Exec("CREATE VIRTUAL TABLE probe USING vec0(embedding float[3])"); err != nil {
		t.Errorf("Expected vec0 to be usable: %v", err)
	}
}
