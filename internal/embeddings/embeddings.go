package embeddings

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/streed/synapse/internal/config"
	"github.com/streed/synapse/internal/constants"
	interrors "github.com/streed/synapse/internal/errors"
	"github.com/streed/synapse/internal/logger"
)

type EmbeddingType string

const (
	EmbeddingTypeDocument EmbeddingType = "document"
	EmbeddingTypeSearch   EmbeddingType = "search"
)

// Provider turns text into a fixed-size vector.
type Provider interface {
	Name() string
	Model() string
	Dimensions() int
	Embed(ctx context.Context, text string, kind EmbeddingType) ([]float32, error)
}

// New builds the provider selected in cfg, wrapped in the on-disk cache when
// embedding_cache is enabled. The returned close func releases the cache.
func New(cfg *config.Config) (Provider, func() error, error) {
	dims := cfg.VectorDimensions
	if dims <= 0 {
		dims = constants.DefaultDimensions
	}

	var (
		p   Provider
		err error
	)
	switch cfg.EmbeddingProvider {
	case config.ProviderHash, "":
		p = NewHashEmbedder(dims)
	case config.ProviderOllama:
		p = NewOllamaEmbedder(cfg.OllamaEndpoint, cfg.EmbeddingModel, dims)
	case config.ProviderOpenAI:
		p, err = NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, dims)
	case config.ProviderGemini:
		p, err = NewGeminiEmbedder(context.Background(), cfg.GeminiAPIKey, cfg.EmbeddingModel, dims)
	default:
		err = fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
	if err != nil {
		return nil, nil, err
	}

	noop := func() error { return nil }
	if !cfg.EmbeddingCache {
		return p, noop, nil
	}

	cached, err := NewCached(p, cfg.GetEmbeddingCachePath())
	if err != nil {
		logger.Warn("Embedding cache unavailable, continuing without it: %v", err)
		return p, noop, nil
	}
	return cached, cached.Close, nil
}

// NoteText is the text a note is embedded from.
func NoteText(title, content string) string {
	return title + ". " + content
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return interrors.Validation(interrors.ErrEmptyContent)
	}
	return nil
}

func checkDimensions(provider string, got []float32, want int) error {
	if want > 0 && len(got) != want {
		return interrors.Embedding(provider,
			fmt.Errorf("%w: model returned %d dimensions but %d are configured", interrors.ErrDimensionMismatch, len(got), want))
	}
	return nil
}

func EmbeddingToBytes(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*constants.BytesPerFloat32)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*constants.BytesPerFloat32:], math.Float32bits(v))
	}
	return buf
}

func BytesToEmbedding(data []byte) ([]float32, error) {
	if len(data)%constants.BytesPerFloat32 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", interrors.ErrInvalidEmbeddingLength, len(data))
	}

	embedding := make([]float32, len(data)/constants.BytesPerFloat32)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*constants.BytesPerFloat32:]))
	}
	return embedding, nil
}

// CosineSimilarity returns a value in [-1, 1], or 0 for mismatched or zero
// vectors.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= norm
	}
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
