package graph

import (
	"context"
	"fmt"
	"regexp"

	"github.com/streed/synapse/internal/config"
	interrors "github.com/streed/synapse/internal/errors"
	"github.com/streed/synapse/internal/models"
)

// Store is the system of record for notes, their tags and the relations
// between them.
type Store interface {
	Backend() string
	// CreateNote stores a fully populated note. The id must be unused.
	CreateNote(ctx context.Context, note *models.Note) error
	GetNote(ctx context.Context, id string) (*models.Note, error)
	// GetNotes returns the notes that exist, in the order of ids.
	GetNotes(ctx context.Context, ids []string) ([]*models.Note, error)
	// ListNotes returns notes most recent first. limit <= 0 means no limit.
	ListNotes(ctx context.Context, limit int) ([]*models.Note, error)
	DeleteNote(ctx context.Context, id string) error
	CountNotes(ctx context.Context) (int, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	CreateRelation(ctx context.Context, fromID, toID, relType string) error
	RelatedNotes(ctx context.Context, id string) ([]*models.RelatedNote, error)
	Ping(ctx context.Context) error
	Close() error
}

var relationTypePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// ValidateRelation checks a relation before it reaches a backend. Relation
// types are interpolated into Cypher, so only upper-case identifiers pass.
func ValidateRelation(fromID, toID, relType string) error {
	if fromID == "" || toID == "" {
		return interrors.Validation(interrors.ErrInvalidNoteID)
	}
	if fromID == toID {
		return interrors.Validation(fmt.Errorf("%w: a note cannot relate to itself", interrors.ErrInvalidRelation), "note_id", fromID)
	}
	if !relationTypePattern.MatchString(relType) {
		return interrors.Validation(fmt.Errorf("%w: type %q must match %s", interrors.ErrInvalidRelation, relType, relationTypePattern), "type", relType)
	}
	return nil
}

// New opens the backend selected by cfg.GraphBackend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.GraphBackend {
	case config.GraphBackendSQLite, "":
		return NewSQLiteStore(ctx, cfg.GetGraphDatabasePath())
	case config.GraphBackendNeo4j:
		return NewNeo4jStore(ctx, Neo4jConfig{
			URI:      cfg.Neo4jURI,
			User:     cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
	default:
		return nil, fmt.Errorf("unknown graph backend %q", cfg.GraphBackend)
	}
}
