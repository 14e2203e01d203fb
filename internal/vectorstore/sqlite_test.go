package vectorstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	interrors "github.com/streed/synapse/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, dims int) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "vectors.db"), dims)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// modes runs fn against the vec0 index (when available) and the cosine scan.
func modes(t *testing.T, fn func(t *testing.T, s *SQLiteStore)) {
	t.Run("scan", func(t *testing.T) {
		s := setupStore(t, 3)
		s.useVec = false
		fn(t, s)
	})
	t.Run("vec0", func(t *testing.T) {
		s := setupStore(t, 3)
		if !s.UsesVec() {
			t.Skip("sqlite-vec not available")
		}
		fn(t, s)
	})
}

func TestSimilarityFromDistance(t *testing.T) {
	assert.Equal(t, 1.0, SimilarityFromDistance(0))
	assert.Equal(t, 0.5, SimilarityFromDistance(1))
	assert.Equal(t, 0.0, SimilarityFromDistance(2))
	assert.Equal(t, 0.0, SimilarityFromDistance(2.5))
	assert.Equal(t, 1.0, SimilarityFromDistance(-0.01))
}

func TestUpsertAndQuery(t *testing.T) {
	modes(t, func(t *testing.T, s *SQLiteStore) {
		ctx := context.Background()
		require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0, 0}, map[string]string{"title": "A"}))
		require.NoError(t, s.Upsert(ctx, "b", []float32{0, 1, 0}, nil))
		require.NoError(t, s.Upsert(ctx, "c", []float32{0.9, 0.1, 0}, nil))

		matches, err := s.Query(ctx, []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "a", matches[0].ID)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-4)
		assert.Equal(t, "c", matches[1].ID)
		assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})
}

func TestUpsertReplaces(t *testing.T) {
	modes(t, func(t *testing.T, s *SQLiteStore) {
		ctx := context.Background()
		require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0, 0}, map[string]string{"title": "old"}))
		require.NoError(t, s.Upsert(ctx, "a", []float32{0, 0, 1}, map[string]string{"title": "new"}))

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		matches, err := s.Query(ctx, []float32{0, 0, 1}, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-4)

		meta, err := s.Metadata(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "new", meta["title"])
	})
}

func TestDelete(t *testing.T) {
	modes(t, func(t *testing.T, s *SQLiteStore) {
		ctx := context.Background()
		require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0, 0}, nil))
		require.NoError(t, s.Delete(ctx, "a"))
		require.NoError(t, s.Delete(ctx, "missing"))

		matches, err := s.Query(ctx, []float32{1, 0, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, matches)

		meta, err := s.Metadata(ctx, "a")
		require.NoError(t, err)
		assert.Nil(t, meta)
	})
}

func TestReset(t *testing.T) {
	modes(t, func(t *testing.T, s *SQLiteStore) {
		ctx := context.Background()
		require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0, 0}, nil))
		require.NoError(t, s.Upsert(ctx, "b", []float32{0, 1, 0}, nil))
		require.NoError(t, s.Reset(ctx))

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		require.NoError(t, s.Upsert(ctx, "c", []float32{0, 1, 0}, nil))
		matches, err := s.Query(ctx, []float32{0, 1, 0}, 5)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "c", matches[0].ID)
	})
}

func TestDimensionMismatch(t *testing.T) {
	s := setupStore(t, 3)
	ctx := context.Background()

	err := s.Upsert(ctx, "a", []float32{1, 0}, nil)
	assert.True(t, errors.Is(err, interrors.ErrDimensionMismatch))
	assert.Equal(t, interrors.KindStorage, interrors.KindOf(err))

	_, err = s.Query(ctx, []float32{1, 0, 0, 0}, 1)
	assert.True(t, errors.Is(err, interrors.ErrDimensionMismatch))
}

func TestQueryWithNonPositiveK(t *testing.T) {
	s := setupStore(t, 3)
	matches, err := s.Query(context.Background(), []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRejectsInvalidInput(t *testing.T) {
	_, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "v.db"), 0)
	assert.True(t, errors.Is(err, interrors.ErrInvalidDimensions))

	s := setupStore(t, 3)
	err = s.Upsert(context.Background(), "", []float32{1, 0, 0}, nil)
	assert.Equal(t, interrors.KindValidation, interrors.KindOf(err))
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.db")

	s, err := NewSQLiteStore(ctx, path, 3)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0, 0}, nil))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, path, 3)
	require.NoError(t, err)
	defer s.Close()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
