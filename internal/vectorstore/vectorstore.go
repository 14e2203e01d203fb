package vectorstore

import "context"

// Match is one nearest-neighbour hit.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Store keeps one embedding per note id.
type Store interface {
	// Upsert replaces any existing record for id.
	Upsert(ctx context.Context, id string, vector []float32, meta map[string]string) error
	// Query returns up to k matches ordered by descending Score.
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	// Reset drops every record.
	Reset(ctx context.Context) error
	Close() error
}

// SimilarityFromDistance maps a cosine distance in [0, 2] to a similarity
// in [0, 1].
func SimilarityFromDistance(distance float64) float64 {
	s := 1 - distance/2
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
