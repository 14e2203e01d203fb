package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/streed/synapse/internal/constants"
	"github.com/streed/synapse/internal/logger"
)

var vecOnce sync.Once

// DB is a SQLite connection with the sqlite-vec extension registered.
type DB struct {
	conn       *sql.DB
	path       string
	vecVersion string
}

// Open creates the parent directory of path if needed and opens the
// database in WAL mode.
func Open(path string) (*DB, error) {
	vecOnce.Do(func() {
		sqlite_vec.Auto()
		logger.Debug("Initialized sqlite-vec extension")
	})

	if err := os.MkdirAll(filepath.Dir(path), constants.DataDirMode); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	logger.Debug("Database path: %s", path)

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, path: path}

	var vecVersion string
	if err := conn.QueryRow("SELECT vec_version()").Scan(&vecVersion); err == nil {
		db.vecVersion = vecVersion
		logger.Debug("sqlite-vec version %s loaded for %s", vecVersion, path)
	} else {
		logger.Debug("sqlite-vec not available for %s: %v", path, err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Path() string {
	return db.path
}

// VecVersion is empty when the vec0 extension could not be loaded.
func (db *DB) VecVersion() string {
	return db.vecVersion
}

func (db *DB) HasVec() bool {
	return db.vecVersion != ""
}
