package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/streed/synapse/internal/config"
	"github.com/streed/synapse/internal/embeddings"
	"github.com/streed/synapse/internal/graph"
	"github.com/streed/synapse/internal/logger"
	"github.com/streed/synapse/internal/vectorstore"
)

// Services contains all the service dependencies
type Services struct {
	Config *config.Config
	Notes  *NotesService
	Graph  graph.Store

	closers []func() error
}

// Open builds the embedder and both stores described by cfg.
func Open(ctx context.Context, cfg *config.Config) (*Services, error) {
	embedder, closeEmbedder, err := embeddings.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	s := &Services{Config: cfg, closers: []func() error{closeEmbedder}}

	vectors, err := vectorstore.NewSQLiteStore(ctx, cfg.GetVectorDatabasePath(), embedder.Dimensions())
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	s.closers = append(s.closers, vectors.Close)

	graphStore, err := graph.New(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open graph store: %w", err)
	}
	s.closers = append(s.closers, graphStore.Close)
	s.Graph = graphStore

	if cfg.VectorConfigVersion != "" && cfg.NeedsReindex(cfg.VectorConfigVersion) {
		logger.Warn("Embedding settings changed since the last index; run 'synapse reindex'")
	}

	s.Notes = NewNotesService(embedder, vectors, graphStore, cfg.GraphBackend)
	return s, nil
}

// Close releases the stores and the embedding cache in reverse order.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
