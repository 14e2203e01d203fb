package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/streed/synapse/internal/config"
	"github.com/streed/synapse/internal/constants"
	"github.com/streed/synapse/internal/embeddings"
	interrors "github.com/streed/synapse/internal/errors"
	"github.com/streed/synapse/internal/graph"
	"github.com/streed/synapse/internal/logger"
	"github.com/streed/synapse/internal/metrics"
	"github.com/streed/synapse/internal/models"
	"github.com/streed/synapse/internal/vectorstore"
)

// NotesService keeps the graph store and the vector store in step. The graph
// store is the system of record; the vector store is an index over it.
type NotesService struct {
	embedder     embeddings.Provider
	vectors      vectorstore.Store
	graph        graph.Store
	graphBackend string
	now          func() time.Time
}

func NewNotesService(embedder embeddings.Provider, vectors vectorstore.Store, graphStore graph.Store, graphBackend string) *NotesService {
	if graphBackend == "" {
		graphBackend = config.GraphBackendSQLite
	}
	return &NotesService{
		embedder:     embedder,
		vectors:      vectors,
		graph:        graphStore,
		graphBackend: graphBackend,
		now:          time.Now,
	}
}

func (s *NotesService) embed(ctx context.Context, text string, kind embeddings.EmbeddingType) ([]float32, error) {
	done := metrics.TimeEmbedding(s.embedder.Name())
	vec, err := s.embedder.Embed(ctx, text, kind)
	done(err == nil)
	if err != nil {
		return nil, interrors.Embedding(s.embedder.Name(), err)
	}
	return vec, nil
}

// Create validates the input, embeds it and writes the graph node followed
// by the vector. A failed vector write leaves the node in place; reindex
// repairs it.
func (s *NotesService) Create(ctx context.Context, title, content string, tags []string) (*models.Note, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		return nil, interrors.Validation(interrors.ErrEmptyTitle)
	}
	if content == "" {
		return nil, interrors.Validation(interrors.ErrEmptyContent)
	}

	vec, err := s.embed(ctx, embeddings.NoteText(title, content), embeddings.EmbeddingTypeDocument)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	note := &models.Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Tags:      models.NormalizeTags(tags),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.graph.CreateNote(ctx, note); err != nil {
		return nil, interrors.Storage("create note", err)
	}
	if err := s.vectors.Upsert(ctx, note.ID, vec, note.Metadata()); err != nil {
		logger.Error("Note %s stored without vector: %v", note.ID, err)
		return nil, interrors.Storage("index note", err)
	}

	logger.Debug("Created note %s (%q)", note.ID, note.Title)
	return note, nil
}

// ClampTopK applies the default and the upper bound to a requested k.
func ClampTopK(k int) int {
	if k <= 0 {
		return constants.DefaultTopK
	}
	if k > constants.MaxTopK {
		return constants.MaxTopK
	}
	return k
}

// Search ranks notes by similarity to query. Vector hits whose note is gone
// from the graph store are skipped.
func (s *NotesService) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, interrors.Validation(interrors.ErrEmptyQuery)
	}
	k = ClampTopK(k)

	vec, err := s.embed(ctx, query, embeddings.EmbeddingTypeSearch)
	if err != nil {
		return nil, err
	}

	matches, err := s.vectors.Query(ctx, vec, k)
	if err != nil {
		return nil, interrors.Storage("query vectors", err)
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	notes, err := s.graph.GetNotes(ctx, ids)
	if err != nil {
		return nil, interrors.Storage("get notes", err)
	}
	byID := make(map[string]*models.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}

	results := make([]models.SearchResult, 0, len(matches))
	for _, m := range matches {
		note, ok := byID[m.ID]
		if !ok {
			logger.Debug("Skipping vector %s with no graph node", m.ID)
			continue
		}
		results = append(results, models.NewSearchResult(*note, m.Score))
	}
	return results, nil
}

// List returns at most limit notes, most recent first.
func (s *NotesService) List(ctx context.Context, limit int) ([]*models.Note, error) {
	if limit < 0 {
		return nil, interrors.Validation(interrors.ErrInvalidLimit)
	}
	if limit == 0 {
		return []*models.Note{}, nil
	}
	notes, err := s.graph.ListNotes(ctx, limit)
	if err != nil {
		return nil, interrors.Storage("list notes", err)
	}
	return notes, nil
}

func (s *NotesService) Get(ctx context.Context, id string) (*models.Note, error) {
	if strings.TrimSpace(id) == "" {
		return nil, interrors.Validation(interrors.ErrInvalidNoteID)
	}
	note, err := s.graph.GetNote(ctx, id)
	if err != nil {
		return nil, interrors.Storage("get note", err)
	}
	return note, nil
}

// Delete removes the note from the graph store and then, best effort, its
// vector. A leftover vector is skipped by Search and dropped by Reindex.
func (s *NotesService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return interrors.Validation(interrors.ErrInvalidNoteID)
	}
	if err := s.graph.DeleteNote(ctx, id); err != nil {
		return interrors.Storage("delete note", err)
	}
	if err := s.vectors.Delete(ctx, id); err != nil {
		logger.Warn("Failed to delete vector for note %s: %v", id, err)
	}
	return nil
}

// RelationType upper-cases relType, defaulting to RELATED_TO.
func RelationType(relType string) string {
	relType = strings.ToUpper(strings.TrimSpace(relType))
	if relType == "" {
		return constants.RelationRelatedTo
	}
	return relType
}

func (s *NotesService) Relate(ctx context.Context, fromID, toID, relType string) error {
	if err := s.graph.CreateRelation(ctx, fromID, toID, RelationType(relType)); err != nil {
		return interrors.Storage("create relation", err)
	}
	return nil
}

func (s *NotesService) Related(ctx context.Context, id string) ([]*models.RelatedNote, error) {
	related, err := s.graph.RelatedNotes(ctx, id)
	if err != nil {
		return nil, interrors.Storage("related notes", err)
	}
	return related, nil
}

func (s *NotesService) Tags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.graph.ListTags(ctx)
	if err != nil {
		return nil, interrors.Storage("list tags", err)
	}
	return tags, nil
}

func (s *NotesService) Stats(ctx context.Context) (*models.Stats, error) {
	graphCount, err := s.graph.CountNotes(ctx)
	if err != nil {
		return nil, interrors.Storage("count notes", err)
	}
	vectorCount, err := s.vectors.Count(ctx)
	if err != nil {
		return nil, interrors.Storage("count vectors", err)
	}
	tags, err := s.graph.ListTags(ctx)
	if err != nil {
		return nil, interrors.Storage("list tags", err)
	}

	return &models.Stats{
		TotalNotesNeo4j:   graphCount,
		TotalNotesGraph:   graphCount,
		TotalNotesChroma:  vectorCount,
		TotalNotesVector:  vectorCount,
		TotalTags:         len(tags),
		EmbeddingModel:    s.embedder.Model(),
		EmbeddingProvider: s.embedder.Name(),
		GraphBackend:      s.graphBackend,
	}, nil
}

// Ping reports whether the graph store is reachable.
func (s *NotesService) Ping(ctx context.Context) error {
	return s.graph.Ping(ctx)
}

// Reindex re-embeds every note in the graph store and then replaces the
// contents of the vector store. The existing index is left untouched when
// any embedding fails. progress, when set, is called after each note is
// embedded.
func (s *NotesService) Reindex(ctx context.Context, progress func(done, total int)) (int, error) {
	notes, err := s.graph.ListNotes(ctx, 0)
	if err != nil {
		return 0, interrors.Storage("list notes", err)
	}

	vecs := make([][]float32, len(notes))
	for i, note := range notes {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		vecs[i], err = s.embed(ctx, embeddings.NoteText(note.Title, note.Content), embeddings.EmbeddingTypeDocument)
		if err != nil {
			return 0, err
		}
		if progress != nil {
			progress(i+1, len(notes))
		}
	}

	if err := s.vectors.Reset(ctx); err != nil {
		return 0, interrors.Storage("reset vectors", err)
	}
	for i, note := range notes {
		if err := s.vectors.Upsert(ctx, note.ID, vecs[i], note.Metadata()); err != nil {
			logger.Error("Reindex stopped after %d of %d notes; run reindex again", i, len(notes))
			return i, interrors.Storage("index note", err)
		}
	}

	logger.Info("Reindexed %d notes", len(notes))
	return len(notes), nil
}
