package migrations

import (
	"database/sql"
	"fmt"
)

// Graph returns the schema for the SQLite graph store.
func Graph() []Migration {
	return []Migration{
		{
			ID:          "000_notes_and_tags",
			Description: "Create notes, tags and note_tags tables",
			Up:          graph000Up,
			Down:        dropTables("note_tags", "tags", "notes"),
		},
		{
			ID:          "001_note_relations",
			Description: "Add typed relations between notes",
			Up:          graph001Up,
			Down:        dropTables("note_relations"),
		},
		// Add new migrations here in chronological order
	}
}

// Vector returns the schema for the companion tables of the vector store.
// The vec0 virtual table depends on the configured dimensions and is created
// by the store itself.
func Vector() []Migration {
	return []Migration{
		{
			ID:          "000_vector_metadata",
			Description: "Create vector metadata table",
			Up:          vector000Up,
			Down:        dropTables("vector_metadata"),
		},
	}
}

func execAll(tx *sql.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func dropTables(tables ...string) func(tx *sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, table := range tables {
			if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
				return fmt.Errorf("failed to drop table %s: %w", table, err)
			}
		}
		return nil
	}
}

func graph000Up(tx *sql.Tx) error {
	err := execAll(tx,
		`CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes(created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS note_tags (
			note_id TEXT NOT NULL,
			tag_id INTEGER NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (note_id, tag_id),
			FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE,
			FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_note_tags_tag_id ON note_tags(tag_id)`,
	)
	if err != nil {
		return fmt.Errorf("failed to create notes schema: %w", err)
	}
	return nil
}

func graph001Up(tx *sql.Tx) error {
	err := execAll(tx,
		`CREATE TABLE IF NOT EXISTS note_relations (
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			type TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (source_id, target_id, type),
			FOREIGN KEY (source_id) REFERENCES notes(id) ON DELETE CASCADE,
			FOREIGN KEY (target_id) REFERENCES notes(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_note_relations_target ON note_relations(target_id)`,
	)
	if err != nil {
		return fmt.Errorf("failed to create note_relations table: %w", err)
	}
	return nil
}

func vector000Up(tx *sql.Tx) error {
	err := execAll(tx,
		`CREATE TABLE IF NOT EXISTS vector_metadata (
			id TEXT PRIMARY KEY,
			metadata TEXT NOT NULL DEFAULT '{}',
			dimensions INTEGER NOT NULL,
			embedding BLOB NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	)
	if err != nil {
		return fmt.Errorf("failed to create vector_metadata table: %w", err)
	}
	return nil
}
