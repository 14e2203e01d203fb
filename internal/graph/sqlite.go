package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/streed/synapse/internal/config"
	"github.com/streed/synapse/internal/database"
	interrors "github.com/streed/synapse/internal/errors"
	"github.com/streed/synapse/internal/logger"
	"github.com/streed/synapse/internal/metrics"
	"github.com/streed/synapse/internal/migrations"
	"github.com/streed/synapse/internal/models"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore models the note graph as tables: notes are nodes, note_tags
// rows are TAGGED_WITH edges and note_relations rows are typed edges.
type SQLiteStore struct {
	db         *database.DB
	migrations *migrations.MigrationRunner
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}

	runner := migrations.NewMigrationRunner(db.Conn(), migrations.Graph())
	if _, err := runner.Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate graph store: %w", err)
	}

	return &SQLiteStore{db: db, migrations: runner}, nil
}

func (s *SQLiteStore) Backend() string { return config.GraphBackendSQLite }

// Migrations exposes the schema runner for the migrate command.
func (s *SQLiteStore) Migrations() *migrations.MigrationRunner {
	return s.migrations
}

func (s *SQLiteStore) CreateNote(ctx context.Context, note *models.Note) (err error) {
	done := metrics.TimeStoreOp("graph", "create_note")
	defer func() { done(err == nil) }()

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return interrors.Storage("create note", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO notes (id, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		note.ID, note.Title, note.Content, note.CreatedAt.UTC(), note.UpdatedAt.UTC(),
	)
	if err != nil {
		return interrors.Storage("create note", err)
	}

	for i, tag := range note.Tags {
		if _, err := tx.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING", tag); err != nil {
			return interrors.Storage("create tag", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO note_tags (note_id, tag_id, position)
			SELECT ?, id, ? FROM tags WHERE name = ?
		`, note.ID, i, tag)
		if err != nil {
			return interrors.Storage("tag note", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return interrors.Storage("create note", err)
	}
	logger.Debug("Created note %s with %d tags", note.ID, len(note.Tags))
	return nil
}

const noteColumns = "id, title, content, created_at, updated_at"

func scanNotes(rows *sql.Rows) ([]*models.Note, error) {
	defer rows.Close()

	notes := []*models.Note{}
	for rows.Next() {
		var note models.Note
		if err := rows.Scan(&note.ID, &note.Title, &note.Content, &note.CreatedAt, &note.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		note.Tags = []string{}
		notes = append(notes, &note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return notes, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// attachTags fills Tags on every note in one query.
func (s *SQLiteStore) attachTags(ctx context.Context, notes []*models.Note) error {
	if len(notes) == 0 {
		return nil
	}

	byID := make(map[string]*models.Note, len(notes))
	ids := make([]string, 0, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
		ids = append(ids, n.ID)
	}

	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT nt.note_id, t.name
		FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id IN (`+placeholders(len(ids))+`)
		ORDER BY nt.note_id, nt.position
	`, stringArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var noteID, tag string
		if err := rows.Scan(&noteID, &tag); err != nil {
			return err
		}
		if n, ok := byID[noteID]; ok {
			n.Tags = append(n.Tags, tag)
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) GetNote(ctx context.Context, id string) (*models.Note, error) {
	notes, err := s.GetNotes(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, interrors.NotFound(id)
	}
	return notes[0], nil
}

func (s *SQLiteStore) GetNotes(ctx context.Context, ids []string) (result []*models.Note, err error) {
	done := metrics.TimeStoreOp("graph", "get_notes")
	defer func() { done(err == nil) }()

	if len(ids) == 0 {
		return []*models.Note{}, nil
	}

	rows, err := s.db.Conn().QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE id IN ("+placeholders(len(ids))+")",
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, interrors.Storage("get notes", err)
	}
	notes, err := scanNotes(rows)
	if err != nil {
		return nil, interrors.Storage("get notes", err)
	}
	if err := s.attachTags(ctx, notes); err != nil {
		return nil, interrors.Storage("get note tags", err)
	}

	byID := make(map[string]*models.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}
	result = make([]*models.Note, 0, len(notes))
	for _, id := range ids {
		if n, ok := byID[id]; ok {
			result = append(result, n)
			delete(byID, id)
		}
	}
	return result, nil
}

func (s *SQLiteStore) ListNotes(ctx context.Context, limit int) (notes []*models.Note, err error) {
	done := metrics.TimeStoreOp("graph", "list_notes")
	defer func() { done(err == nil) }()

	query := "SELECT " + noteColumns + " FROM notes ORDER BY created_at DESC, rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, interrors.Storage("list notes", err)
	}
	notes, err = scanNotes(rows)
	if err != nil {
		return nil, interrors.Storage("list notes", err)
	}
	if err := s.attachTags(ctx, notes); err != nil {
		return nil, interrors.Storage("list note tags", err)
	}
	return notes, nil
}

func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) (err error) {
	done := metrics.TimeStoreOp("graph", "delete_note")
	defer func() { done(err == nil) }()

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return interrors.Storage("delete note", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM note_tags WHERE note_id = ?", id); err != nil {
		return interrors.Storage("delete note", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM note_relations WHERE source_id = ? OR target_id = ?", id, id); err != nil {
		return interrors.Storage("delete note", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return interrors.Storage("delete note", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return interrors.Storage("delete note", err)
	}
	if affected == 0 {
		return interrors.NotFound(id)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE id NOT IN (SELECT tag_id FROM note_tags)"); err != nil {
		return interrors.Storage("prune tags", err)
	}

	if err := tx.Commit(); err != nil {
		return interrors.Storage("delete note", err)
	}
	return nil
}

func (s *SQLiteStore) CountNotes(ctx context.Context) (int, error) {
	var n int
	if err := s.db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&n); err != nil {
		return 0, interrors.Storage("count notes", err)
	}
	return n, nil
}

func (s *SQLiteStore) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT t.name, COUNT(nt.note_id) AS uses
		FROM tags t
		JOIN note_tags nt ON nt.tag_id = t.id
		GROUP BY t.id
		ORDER BY uses DESC, t.name
	`)
	if err != nil {
		return nil, interrors.Storage("list tags", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.Name, &tag.Count); err != nil {
			return nil, interrors.Storage("list tags", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, interrors.Storage("list tags", err)
	}
	return tags, nil
}

func (s *SQLiteStore) noteExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.Conn().QueryRowContext(ctx, "SELECT 1 FROM notes WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) CreateRelation(ctx context.Context, fromID, toID, relType string) (err error) {
	done := metrics.TimeStoreOp("graph", "create_relation")
	defer func() { done(err == nil) }()

	if err := ValidateRelation(fromID, toID, relType); err != nil {
		return err
	}
	for _, id := range []string{fromID, toID} {
		ok, err := s.noteExists(ctx, id)
		if err != nil {
			return interrors.Storage("create relation", err)
		}
		if !ok {
			return interrors.NotFound(id)
		}
	}

	_, err = s.db.Conn().ExecContext(ctx, `
		INSERT INTO note_relations (source_id, target_id, type, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_id, target_id, type) DO UPDATE SET created_at = excluded.created_at
	`, fromID, toID, relType, time.Now().UTC())
	if err != nil {
		return interrors.Storage("create relation", err)
	}
	return nil
}

// RelatedNotes follows relations in both directions.
func (s *SQLiteStore) RelatedNotes(ctx context.Context, id string) ([]*models.RelatedNote, error) {
	ok, err := s.noteExists(ctx, id)
	if err != nil {
		return nil, interrors.Storage("related notes", err)
	}
	if !ok {
		return nil, interrors.NotFound(id)
	}

	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT r.other_id, r.type FROM (
			SELECT target_id AS other_id, type, created_at FROM note_relations WHERE source_id = ?
			UNION ALL
			SELECT source_id AS other_id, type, created_at FROM note_relations WHERE target_id = ?
		) r
		ORDER BY r.created_at DESC
	`, id, id)
	if err != nil {
		return nil, interrors.Storage("related notes", err)
	}

	var (
		otherIDs []string
		types    []string
	)
	for rows.Next() {
		var otherID, relType string
		if err := rows.Scan(&otherID, &relType); err != nil {
			rows.Close()
			return nil, interrors.Storage("related notes", err)
		}
		otherIDs = append(otherIDs, otherID)
		types = append(types, relType)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, interrors.Storage("related notes", err)
	}

	notes, err := s.GetNotes(ctx, otherIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}

	related := make([]*models.RelatedNote, 0, len(otherIDs))
	for i, otherID := range otherIDs {
		if n, ok := byID[otherID]; ok {
			related = append(related, &models.RelatedNote{Note: *n, RelationType: types[i]})
		}
	}
	return related, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.Conn().PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
