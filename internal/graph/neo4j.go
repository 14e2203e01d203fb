package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/streed/synapse/internal/config"
	interrors "github.com/streed/synapse/internal/errors"
	"github.com/streed/synapse/internal/logger"
	"github.com/streed/synapse/internal/metrics"
	"github.com/streed/synapse/internal/models"
)

var _ Store = (*Neo4jStore)(nil)

type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// Neo4jStore keeps notes as (:Note) nodes linked to (:Tag) nodes through
// TAGGED_WITH and to each other through typed relationships.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewNeo4jStore(ctx context.Context, cfg Neo4jConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", cfg.URI, err)
	}

	s := &Neo4jStore{driver: driver, database: cfg.Database}
	if err := s.createConstraints(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	logger.Debug("Connected to neo4j at %s", cfg.URI)
	return s, nil
}

func (s *Neo4jStore) Backend() string { return config.GraphBackendNeo4j }

func (s *Neo4jStore) run(ctx context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	return neo4j.ExecuteQuery(ctx, s.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
	)
}

func (s *Neo4jStore) createConstraints(ctx context.Context) error {
	statements := []string{
		"CREATE CONSTRAINT note_id_unique IF NOT EXISTS FOR (n:Note) REQUIRE n.id IS UNIQUE",
		"CREATE CONSTRAINT tag_name_unique IF NOT EXISTS FOR (t:Tag) REQUIRE t.name IS UNIQUE",
		"CREATE INDEX note_created_at_index IF NOT EXISTS FOR (n:Note) ON (n.created_at)",
	}
	for _, stmt := range statements {
		if _, err := s.run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to create neo4j schema: %w", err)
		}
	}
	return nil
}

func nodeToNote(node neo4j.Node) *models.Note {
	note := &models.Note{Tags: []string{}}
	if v, ok := node.Props["id"].(string); ok {
		note.ID = v
	}
	if v, ok := node.Props["title"].(string); ok {
		note.Title = v
	}
	if v, ok := node.Props["content"].(string); ok {
		note.Content = v
	}
	if v, ok := node.Props["created_at"].(time.Time); ok {
		note.CreatedAt = v.UTC()
	}
	if v, ok := node.Props["updated_at"].(time.Time); ok {
		note.UpdatedAt = v.UTC()
	}
	if tags, ok := node.Props["tags"].([]any); ok {
		for _, t := range tags {
			if tag, ok := t.(string); ok {
				note.Tags = append(note.Tags, tag)
			}
		}
	}
	return note
}

func recordsToNotes(records []*neo4j.Record, key string) ([]*models.Note, error) {
	notes := make([]*models.Note, 0, len(records))
	for _, rec := range records {
		node, _, err := neo4j.GetRecordValue[neo4j.Node](rec, key)
		if err != nil {
			return nil, err
		}
		notes = append(notes, nodeToNote(node))
	}
	return notes, nil
}

func (s *Neo4jStore) CreateNote(ctx context.Context, note *models.Note) (err error) {
	done := metrics.TimeStoreOp("graph", "create_note")
	defer func() { done(err == nil) }()

	_, err = s.run(ctx, `
		CREATE (n:Note {
			id: $id,
			title: $title,
			content: $content,
			tags: $tags,
			created_at: $created_at,
			updated_at: $updated_at
		})
		WITH n
		UNWIND $tags AS tagName
		MERGE (t:Tag {name: tagName})
		MERGE (n)-[:TAGGED_WITH]->(t)
	`, map[string]any{
		"id":         note.ID,
		"title":      note.Title,
		"content":    note.Content,
		"tags":       note.Tags,
		"created_at": note.CreatedAt.UTC(),
		"updated_at": note.UpdatedAt.UTC(),
	})
	if err != nil {
		return interrors.Storage("create note", err)
	}
	return nil
}

func (s *Neo4jStore) GetNote(ctx context.Context, id string) (*models.Note, error) {
	notes, err := s.GetNotes(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, interrors.NotFound(id)
	}
	return notes[0], nil
}

func (s *Neo4jStore) GetNotes(ctx context.Context, ids []string) (result []*models.Note, err error) {
	done := metrics.TimeStoreOp("graph", "get_notes")
	defer func() { done(err == nil) }()

	if len(ids) == 0 {
		return []*models.Note{}, nil
	}

	res, err := s.run(ctx, "MATCH (n:Note) WHERE n.id IN $ids RETURN n", map[string]any{"ids": ids})
	if err != nil {
		return nil, interrors.Storage("get notes", err)
	}
	notes, err := recordsToNotes(res.Records, "n")
	if err != nil {
		return nil, interrors.Storage("get notes", err)
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

func (s *Neo4jStore) ListNotes(ctx context.Context, limit int) (notes []*models.Note, err error) {
	done := metrics.TimeStoreOp("graph", "list_notes")
	defer func() { done(err == nil) }()

	cypher := "MATCH (n:Note) RETURN n ORDER BY n.created_at DESC"
	params := map[string]any{}
	if limit > 0 {
		cypher += " LIMIT $limit"
		params["limit"] = limit
	}

	res, err := s.run(ctx, cypher, params)
	if err != nil {
		return nil, interrors.Storage("list notes", err)
	}
	notes, err = recordsToNotes(res.Records, "n")
	if err != nil {
		return nil, interrors.Storage("list notes", err)
	}
	return notes, nil
}

func (s *Neo4jStore) DeleteNote(ctx context.Context, id string) (err error) {
	done := metrics.TimeStoreOp("graph", "delete_note")
	defer func() { done(err == nil) }()

	res, err := s.run(ctx, `
		MATCH (n:Note {id: $id})
		DETACH DELETE n
	`, map[string]any{"id": id})
	if err != nil {
		return interrors.Storage("delete note", err)
	}
	if res.Summary.Counters().NodesDeleted() == 0 {
		return interrors.NotFound(id)
	}

	if _, err := s.run(ctx, "MATCH (t:Tag) WHERE NOT (t)<-[:TAGGED_WITH]-() DELETE t", nil); err != nil {
		logger.Warn("Failed to prune unused tags: %v", err)
	}
	return nil
}

func (s *Neo4jStore) CountNotes(ctx context.Context) (int, error) {
	res, err := s.run(ctx, "MATCH (n:Note) RETURN count(n) AS total", nil)
	if err != nil {
		return 0, interrors.Storage("count notes", err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	total, _, err := neo4j.GetRecordValue[int64](res.Records[0], "total")
	if err != nil {
		return 0, interrors.Storage("count notes", err)
	}
	return int(total), nil
}

func (s *Neo4jStore) ListTags(ctx context.Context) ([]models.Tag, error) {
	res, err := s.run(ctx, `
		MATCH (t:Tag)<-[:TAGGED_WITH]-(n:Note)
		RETURN t.name AS name, count(n) AS uses
		ORDER BY uses DESC, name
	`, nil)
	if err != nil {
		return nil, interrors.Storage("list tags", err)
	}

	tags := make([]models.Tag, 0, len(res.Records))
	for _, rec := range res.Records {
		name, _, err := neo4j.GetRecordValue[string](rec, "name")
		if err != nil {
			return nil, interrors.Storage("list tags", err)
		}
		uses, _, err := neo4j.GetRecordValue[int64](rec, "uses")
		if err != nil {
			return nil, interrors.Storage("list tags", err)
		}
		tags = append(tags, models.Tag{Name: name, Count: int(uses)})
	}
	return tags, nil
}

func (s *Neo4jStore) CreateRelation(ctx context.Context, fromID, toID, relType string) (err error) {
	done := metrics.TimeStoreOp("graph", "create_relation")
	defer func() { done(err == nil) }()

	if err := ValidateRelation(fromID, toID, relType); err != nil {
		return err
	}

	res, err := s.run(ctx, "MATCH (n:Note) WHERE n.id IN $ids RETURN n.id AS id",
		map[string]any{"ids": []string{fromID, toID}})
	if err != nil {
		return interrors.Storage("create relation", err)
	}
	found := map[string]bool{}
	for _, rec := range res.Records {
		id, _, err := neo4j.GetRecordValue[string](rec, "id")
		if err == nil {
			found[id] = true
		}
	}
	for _, id := range []string{fromID, toID} {
		if !found[id] {
			return interrors.NotFound(id)
		}
	}

	// relType is validated against an identifier pattern above.
	_, err = s.run(ctx, fmt.Sprintf(`
		MATCH (a:Note {id: $from}), (b:Note {id: $to})
		MERGE (a)-[r:%s]->(b)
		SET r.created_at = datetime()
	`, relType), map[string]any{"from": fromID, "to": toID})
	if err != nil {
		return interrors.Storage("create relation", err)
	}
	return nil
}

func (s *Neo4jStore) RelatedNotes(ctx context.Context, id string) ([]*models.RelatedNote, error) {
	if _, err := s.GetNote(ctx, id); err != nil {
		return nil, err
	}

	res, err := s.run(ctx, `
		MATCH (n:Note {id: $id})-[r]-(related:Note)
		RETURN related, type(r) AS relation_type
		ORDER BY r.created_at DESC
	`, map[string]any{"id": id})
	if err != nil {
		return nil, interrors.Storage("related notes", err)
	}

	related := make([]*models.RelatedNote, 0, len(res.Records))
	for _, rec := range res.Records {
		node, _, err := neo4j.GetRecordValue[neo4j.Node](rec, "related")
		if err != nil {
			return nil, interrors.Storage("related notes", err)
		}
		relType, _, err := neo4j.GetRecordValue[string](rec, "relation_type")
		if err != nil {
			return nil, interrors.Storage("related notes", err)
		}
		related = append(related, &models.RelatedNote{Note: *nodeToNote(node), RelationType: relType})
	}
	return related, nil
}

func (s *Neo4jStore) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}
