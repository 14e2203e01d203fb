package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	interrors "github.com/streed/synapse/internal/errors"
	"github.com/streed/synapse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNote(title, content string, created time.Time, tags ...string) *models.Note {
	if tags == nil {
		tags = []string{}
	}
	return &models.Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Tags:      tags,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "graph.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"neo4j": func(t *testing.T) Store {
			uri := os.Getenv("SYNAPSE_TEST_NEO4J_URI")
			if uri == "" {
				t.Skip("SYNAPSE_TEST_NEO4J_URI not set")
			}
			ctx := context.Background()
			s, err := NewNeo4jStore(ctx, Neo4jConfig{
				URI:      uri,
				User:     os.Getenv("SYNAPSE_TEST_NEO4J_USER"),
				Password: os.Getenv("SYNAPSE_TEST_NEO4J_PASSWORD"),
				Database: "neo4j",
			})
			require.NoError(t, err)
			_, err = s.run(ctx, "MATCH (n) WHERE n:Note OR n:Tag DETACH DELETE n", nil)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func TestCreateAndGetNote(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		note := newNote("Calculus", "Derivative rules", time.Now(), "math", "school")
		require.NoError(t, s.CreateNote(ctx, note))

		got, err := s.GetNote(ctx, note.ID)
		require.NoError(t, err)
		assert.Equal(t, note.ID, got.ID)
		assert.Equal(t, "Calculus", got.Title)
		assert.Equal(t, "Derivative rules", got.Content)
		assert.Equal(t, []string{"math", "school"}, got.Tags)
		assert.WithinDuration(t, note.CreatedAt, got.CreatedAt, time.Millisecond)

		_, err = s.GetNote(ctx, "missing")
		assert.True(t, errors.Is(err, interrors.ErrNoteNotFound))
	})
}

func TestCreateDuplicateID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		note := newNote("A", "a", time.Now())
		require.NoError(t, s.CreateNote(ctx, note))
		err := s.CreateNote(ctx, note)
		assert.Equal(t, interrors.KindStorage, interrors.KindOf(err))
	})
}

func TestGetNotesKeepsRequestOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := newNote("A", "a", time.Now())
		b := newNote("B", "b", time.Now())
		require.NoError(t, s.CreateNote(ctx, a))
		require.NoError(t, s.CreateNote(ctx, b))

		notes, err := s.GetNotes(ctx, []string{b.ID, "missing", a.ID})
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, b.ID, notes[0].ID)
		assert.Equal(t, a.ID, notes[1].ID)

		notes, err = s.GetNotes(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, notes)
	})
}

func TestListNotesMostRecentFirst(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Now().Add(-time.Hour)
		var ids []string
		for i := 0; i < 5; i++ {
			n := newNote("note", "content", base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, s.CreateNote(ctx, n))
			ids = append(ids, n.ID)
		}

		notes, err := s.ListNotes(ctx, 3)
		require.NoError(t, err)
		require.Len(t, notes, 3)
		assert.Equal(t, ids[4], notes[0].ID)
		assert.Equal(t, ids[3], notes[1].ID)
		assert.Equal(t, ids[2], notes[2].ID)

		all, err := s.ListNotes(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 5)

		count, err := s.CountNotes(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, count)
	})
}

func TestDeleteNote(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := newNote("A", "a", time.Now(), "shared", "only-a")
		b := newNote("B", "b", time.Now(), "shared")
		require.NoError(t, s.CreateNote(ctx, a))
		require.NoError(t, s.CreateNote(ctx, b))
		require.NoError(t, s.CreateRelation(ctx, a.ID, b.ID, "RELATED_TO"))

		require.NoError(t, s.DeleteNote(ctx, a.ID))

		_, err := s.GetNote(ctx, a.ID)
		assert.True(t, errors.Is(err, interrors.ErrNoteNotFound))

		err = s.DeleteNote(ctx, a.ID)
		assert.Equal(t, interrors.KindNotFound, interrors.KindOf(err))

		related, err := s.RelatedNotes(ctx, b.ID)
		require.NoError(t, err)
		assert.Empty(t, related)

		tags, err := s.ListTags(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.Tag{{Name: "shared", Count: 1}}, tags)
	})
}

func TestListTags(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.CreateNote(ctx, newNote("A", "a", time.Now(), "go", "db")))
		require.NoError(t, s.CreateNote(ctx, newNote("B", "b", time.Now(), "go")))

		tags, err := s.ListTags(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.Tag{{Name: "go", Count: 2}, {Name: "db", Count: 1}}, tags)
	})
}

func TestRelations(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := newNote("A", "a", time.Now())
		b := newNote("B", "b", time.Now())
		require.NoError(t, s.CreateNote(ctx, a))
		require.NoError(t, s.CreateNote(ctx, b))

		require.NoError(t, s.CreateRelation(ctx, a.ID, b.ID, "RELATED_TO"))
		require.NoError(t, s.CreateRelation(ctx, a.ID, b.ID, "RELATED_TO"), "relating twice is idempotent")

		fromA, err := s.RelatedNotes(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, fromA, 1)
		assert.Equal(t, b.ID, fromA[0].ID)
		assert.Equal(t, "RELATED_TO", fromA[0].RelationType)

		fromB, err := s.RelatedNotes(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, fromB, 1)
		assert.Equal(t, a.ID, fromB[0].ID)

		err = s.CreateRelation(ctx, a.ID, "missing", "RELATED_TO")
		assert.Equal(t, interrors.KindNotFound, interrors.KindOf(err))

		err = s.CreateRelation(ctx, a.ID, a.ID, "RELATED_TO")
		assert.Equal(t, interrors.KindValidation, interrors.KindOf(err))

		err = s.CreateRelation(ctx, a.ID, b.ID, "bad type; DROP")
		assert.True(t, errors.Is(err, interrors.ErrInvalidRelation))

		_, err = s.RelatedNotes(ctx, "missing")
		assert.Equal(t, interrors.KindNotFound, interrors.KindOf(err))
	})
}

func TestPing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func TestValidateRelation(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		relType string
		wantErr bool
	}{
		{name: "default type", from: "a", to: "b", relType: "RELATED_TO"},
		{name: "digits", from: "a", to: "b", relType: "PART_2"},
		{name: "lower case", from: "a", to: "b", relType: "related", wantErr: true},
		{name: "leading digit", from: "a", to: "b", relType: "2X", wantErr: true},
		{name: "empty type", from: "a", to: "b", relType: "", wantErr: true},
		{name: "self", from: "a", to: "a", relType: "RELATED_TO", wantErr: true},
		{name: "missing id", from: "", to: "b", relType: "RELATED_TO", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelation(tt.from, tt.to, tt.relType)
			if tt.wantErr {
				assert.Equal(t, interrors.KindValidation, interrors.KindOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSQLiteMigrationsApplied(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer s.Close()

	status, err := s.Migrations().Status(context.Background())
	require.NoError(t, err)
	for _, m := range status {
		assert.True(t, m.Applied, m.ID)
	}
}
