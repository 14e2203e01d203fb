package embeddings

import (
	"context"
	"fmt"

	interrors "github.com/streed/synapse/internal/errors"
	"google.golang.org/genai"
)

const defaultGeminiModel = "text-embedding-004"

// GeminiEmbedder uses the Gemini API EmbedContent call.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimensions int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: missing api key")
	}
	if model == "" || model == "nomic-embed-text" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	return &GeminiEmbedder{client: client, model: model, dimensions: dimensions}, nil
}

func (e *GeminiEmbedder) Name() string    { return "gemini" }
func (e *GeminiEmbedder) Model() string   { return e.model }
func (e *GeminiEmbedder) Dimensions() int { return e.dimensions }

func taskType(kind EmbeddingType) string {
	if kind == EmbeddingTypeSearch {
		return "RETRIEVAL_QUERY"
	}
	return "RETRIEVAL_DOCUMENT"
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string, kind EmbeddingType) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	cfg := &genai.EmbedContentConfig{TaskType: taskType(kind)}
	if e.dimensions > 0 {
		dims := int32(e.dimensions)
		cfg.OutputDimensionality = &dims
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, interrors.Embedding(e.Name(), err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, interrors.Embedding(e.Name(), fmt.Errorf("empty response"))
	}

	vec := resp.Embeddings[0].Values
	if err := checkDimensions(e.Name(), vec, e.dimensions); err != nil {
		return nil, err
	}
	return vec, nil
}
