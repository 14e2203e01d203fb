package models

import (
	"fmt"
	"strings"
	"time"
)

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Preview returns the content cut to at most n runes.
func (n *Note) Preview(length int) string {
	runes := []rune(n.Content)
	if len(runes) <= length {
		return n.Content
	}
	return string(runes[:length]) + "..."
}

// Metadata is the minimal copy of a note kept next to its vector.
func (n *Note) Metadata() map[string]string {
	return map[string]string{
		"title": n.Title,
		"tags":  strings.Join(n.Tags, ","),
	}
}

// NormalizeTags trims every tag, drops empty ones and removes duplicates
// while keeping the first occurrence order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// ParseTags splits a comma separated tag list.
func ParseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return NormalizeTags(strings.Split(s, ","))
}

type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Relation struct {
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// RelatedNote is a note reached through a relation in either direction.
type RelatedNote struct {
	Note
	RelationType string `json:"relation_type"`
}

// SearchResult is a note ranked by similarity to a query.
type SearchResult struct {
	Note
	SimilarityScore      float64 `json:"similarity_score"`
	SimilarityPercentage string  `json:"similarity_percentage"`
}

func NewSearchResult(note Note, score float64) SearchResult {
	return SearchResult{
		Note:                 note,
		SimilarityScore:      score,
		SimilarityPercentage: FormatPercentage(score),
	}
}

// FormatPercentage renders a 0..1 score as "87.3%".
func FormatPercentage(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}

type Stats struct {
	TotalNotesNeo4j   int    `json:"total_notes_neo4j"`
	TotalNotesGraph   int    `json:"total_notes_graph"`
	TotalNotesChroma  int    `json:"total_notes_chroma"`
	TotalNotesVector  int    `json:"total_notes_vector"`
	TotalTags         int    `json:"total_tags"`
	EmbeddingModel    string `json:"embedding_model"`
	EmbeddingProvider string `json:"embedding_provider"`
	GraphBackend      string `json:"graph_backend"`
}
