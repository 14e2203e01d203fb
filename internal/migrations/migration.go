package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/streed/synapse/internal/logger"
)

// Migration represents a single schema change.
type Migration struct {
	ID          string                 // Unique identifier (e.g., "001_note_relations")
	Description string                 // Human-readable description
	Up          func(tx *sql.Tx) error // Migration function
	Down        func(tx *sql.Tx) error // Rollback function (optional)
}

// MigrationStatus reports whether a migration has been applied.
type MigrationStatus struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Applied     bool   `json:"applied"`
}

// MigrationRunner applies a fixed set of migrations to one database.
type MigrationRunner struct {
	db         *sql.DB
	migrations []Migration
}

// NewMigrationRunner sorts set by ID and binds it to db.
func NewMigrationRunner(db *sql.DB, set []Migration) *MigrationRunner {
	sorted := make([]Migration, len(set))
	copy(sorted, set)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return &MigrationRunner{db: db, migrations: sorted}
}

func (mr *MigrationRunner) createMigrationsTable(ctx context.Context) error {
	_, err := mr.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (mr *MigrationRunner) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := mr.db.QueryContext(ctx, "SELECT id FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan migration id: %w", err)
		}
		applied[id] = true
	}
	return applied, rows.Err()
}

// Run applies every pending migration, each in its own transaction, and
// returns how many were applied.
func (mr *MigrationRunner) Run(ctx context.Context) (int, error) {
	if err := mr.createMigrationsTable(ctx); err != nil {
		return 0, err
	}

	applied, err := mr.appliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range mr.migrations {
		if applied[m.ID] {
			logger.Debug("Migration %s already applied, skipping", m.ID)
			continue
		}

		logger.Debug("Running migration: %s - %s", m.ID, m.Description)
		if err := mr.apply(ctx, m); err != nil {
			return count, err
		}
		count++
	}

	if count > 0 {
		logger.Info("Applied %d migrations", count)
	}
	return count, nil
}

func (mr *MigrationRunner) apply(ctx context.Context, m Migration) error {
	tx, err := mr.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction for migration %s: %w", m.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := m.Up(tx); err != nil {
		return fmt.Errorf("migration %s failed: %w", m.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (id, description, applied_at) VALUES (?, ?, ?)",
		m.ID, m.Description, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
	}
	return nil
}

// Status lists every known migration with its applied flag.
func (mr *MigrationRunner) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := mr.createMigrationsTable(ctx); err != nil {
		return nil, err
	}
	applied, err := mr.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	status := make([]MigrationStatus, 0, len(mr.migrations))
	for _, m := range mr.migrations {
		status = append(status, MigrationStatus{
			ID:          m.ID,
			Description: m.Description,
			Applied:     applied[m.ID],
		})
	}
	return status, nil
}

// Rollback reverts an applied migration that defines Down.
func (mr *MigrationRunner) Rollback(ctx context.Context, id string) error {
	var target *Migration
	for i := range mr.migrations {
		if mr.migrations[i].ID == id {
			target = &mr.migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration %s not found", id)
	}
	if target.Down == nil {
		return fmt.Errorf("migration %s does not support rollback", id)
	}

	applied, err := mr.appliedMigrations(ctx)
	if err != nil {
		return err
	}
	if !applied[id] {
		return fmt.Errorf("migration %s is not applied", id)
	}

	tx, err := mr.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction for rollback %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := target.Down(tx); err != nil {
		return fmt.Errorf("rollback %s failed: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rollback %s: %w", id, err)
	}

	logger.Info("Migration %s rolled back", id)
	return nil
}
