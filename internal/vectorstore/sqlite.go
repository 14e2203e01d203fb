package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/streed/synapse/internal/database"
	"github.com/streed/synapse/internal/embeddings"
	interrors "github.com/streed/synapse/internal/errors"
	"github.com/streed/synapse/internal/logger"
	"github.com/streed/synapse/internal/metrics"
	"github.com/streed/synapse/internal/migrations"
)

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps vectors in a vec0 virtual table for kNN search. Every
// vector is also stored as a BLOB in vector_metadata, which backs a linear
// cosine scan when the extension is unavailable.
type SQLiteStore struct {
	db         *database.DB
	dimensions int
	useVec     bool
}

// NewSQLiteStore opens (or creates) the vector database at path.
func NewSQLiteStore(ctx context.Context, path string, dimensions int) (*SQLiteStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: %d", interrors.ErrInvalidDimensions, dimensions)
	}

	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}

	if _, err := migrations.NewMigrationRunner(db.Conn(), migrations.Vector()).Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate vector store: %w", err)
	}

	s := &SQLiteStore{db: db, dimensions: dimensions}
	if db.HasVec() {
		if err := s.createVecTable(ctx); err != nil {
			logger.Warn("Vector table creation failed, using cosine scan: %v", err)
		} else {
			s.useVec = true
		}
	}

	s.warnOnStaleDimensions(ctx)
	return s, nil
}

func (s *SQLiteStore) createVecTable(ctx context.Context) error {
	_, err := s.db.Conn().ExecContext(ctx, fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_notes USING vec0(id TEXT PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		s.dimensions,
	))
	if err != nil {
		return err
	}
	logger.Debug("vec_notes table ready with %d dimensions", s.dimensions)
	return nil
}

func (s *SQLiteStore) warnOnStaleDimensions(ctx context.Context) {
	var stale int
	err := s.db.Conn().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vector_metadata WHERE dimensions != ?", s.dimensions,
	).Scan(&stale)
	if err == nil && stale > 0 {
		logger.Warn("%d stored vectors do not have %d dimensions; run 'synapse reindex'", stale, s.dimensions)
	}
}

// UsesVec reports whether kNN queries go through the vec0 index.
func (s *SQLiteStore) UsesVec() bool {
	return s.useVec
}

func (s *SQLiteStore) Dimensions() int {
	return s.dimensions
}

func (s *SQLiteStore) checkVector(vector []float32) error {
	if len(vector) != s.dimensions {
		return fmt.Errorf("%w: got %d, want %d", interrors.ErrDimensionMismatch, len(vector), s.dimensions)
	}
	return nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, id string, vector []float32, meta map[string]string) (err error) {
	done := metrics.TimeStoreOp("vector", "upsert")
	defer func() { done(err == nil) }()

	if id == "" {
		return interrors.Validation(interrors.ErrInvalidNoteID)
	}
	if err := s.checkVector(vector); err != nil {
		return interrors.Storage("upsert vector", err)
	}

	metaJSON := []byte("{}")
	if len(meta) > 0 {
		if metaJSON, err = json.Marshal(meta); err != nil {
			return interrors.Storage("upsert vector", fmt.Errorf("marshalling metadata: %w", err))
		}
	}

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return interrors.Storage("upsert vector", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vector_metadata (id, metadata, dimensions, embedding, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			metadata = excluded.metadata,
			dimensions = excluded.dimensions,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`, id, string(metaJSON), len(vector), embeddings.EmbeddingToBytes(vector))
	if err != nil {
		return interrors.Storage("upsert vector", err)
	}

	if s.useVec {
		blob, err := sqlite_vec.SerializeFloat32(vector)
		if err != nil {
			return interrors.Storage("upsert vector", fmt.Errorf("serializing embedding: %w", err))
		}
		// vec0 does not support ON CONFLICT; delete first for upsert.
		if _, err := tx.ExecContext(ctx, "DELETE FROM vec_notes WHERE id = ?", id); err != nil {
			return interrors.Storage("upsert vector", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO vec_notes (id, embedding) VALUES (?, ?)", id, blob); err != nil {
			return interrors.Storage("upsert vector", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return interrors.Storage("upsert vector", err)
	}
	logger.Debug("Indexed vector %s", id)
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, vector []float32, k int) (matches []Match, err error) {
	done := metrics.TimeStoreOp("vector", "query")
	defer func() { done(err == nil) }()

	if k <= 0 {
		return []Match{}, nil
	}
	if err := s.checkVector(vector); err != nil {
		return nil, interrors.Storage("query vectors", err)
	}

	if s.useVec {
		matches, err = s.queryVec(ctx, vector, k)
	} else {
		matches, err = s.queryScan(ctx, vector, k)
	}
	if err != nil {
		return nil, interrors.Storage("query vectors", err)
	}
	return matches, nil
}

func (s *SQLiteStore) queryVec(ctx context.Context, vector []float32, k int) ([]Match, error) {
	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, fmt.Errorf("serializing query vector: %w", err)
	}

	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, distance
		FROM vec_notes
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance
	`, blob, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var (
			id       string
			distance float64
		)
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, fmt.Errorf("scanning vector result: %w", err)
		}
		matches = append(matches, Match{ID: id, Score: SimilarityFromDistance(distance)})
	}
	return matches, rows.Err()
}

func (s *SQLiteStore) queryScan(ctx context.Context, vector []float32, k int) ([]Match, error) {
	rows, err := s.db.Conn().QueryContext(ctx, "SELECT id, embedding FROM vector_metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		stored, err := embeddings.BytesToEmbedding(data)
		if err != nil || len(stored) != len(vector) {
			logger.Debug("Skipping unreadable vector %s", id)
			continue
		}
		distance := 1 - float64(embeddings.CosineSimilarity(vector, stored))
		matches = append(matches, Match{ID: id, Score: SimilarityFromDistance(distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (err error) {
	done := metrics.TimeStoreOp("vector", "delete")
	defer func() { done(err == nil) }()

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return interrors.Storage("delete vector", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vector_metadata WHERE id = ?", id); err != nil {
		return interrors.Storage("delete vector", err)
	}
	if s.useVec {
		if _, err := tx.ExecContext(ctx, "DELETE FROM vec_notes WHERE id = ?", id); err != nil {
			return interrors.Storage("delete vector", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return interrors.Storage("delete vector", err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM vector_metadata").Scan(&n); err != nil {
		return 0, interrors.Storage("count vectors", err)
	}
	return n, nil
}

// Metadata returns the stored metadata for id, or nil when absent.
func (s *SQLiteStore) Metadata(ctx context.Context, id string) (map[string]string, error) {
	var raw string
	err := s.db.Conn().QueryRowContext(ctx, "SELECT metadata FROM vector_metadata WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, interrors.Storage("read vector metadata", err)
	}
	meta := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, interrors.Storage("read vector metadata", err)
	}
	return meta, nil
}

// Reset removes every vector and recreates the vec0 table so a changed
// dimension setting takes effect.
func (s *SQLiteStore) Reset(ctx context.Context) (err error) {
	done := metrics.TimeStoreOp("vector", "reset")
	defer func() { done(err == nil) }()

	if _, err := s.db.Conn().ExecContext(ctx, "DELETE FROM vector_metadata"); err != nil {
		return interrors.Storage("reset vectors", err)
	}
	if s.useVec {
		if _, err := s.db.Conn().ExecContext(ctx, "DROP TABLE IF EXISTS vec_notes"); err != nil {
			return interrors.Storage("reset vectors", err)
		}
		if err := s.createVecTable(ctx); err != nil {
			return interrors.Storage("reset vectors", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
