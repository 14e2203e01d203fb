package embeddings

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	interrors "github.com/streed/synapse/internal/errors"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAIEmbedder uses the OpenAI embeddings endpoint. Any OpenAI compatible
// server works through baseURL.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
}

func NewOpenAIEmbedder(apiKey, baseURL, model string, dimensions int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: missing api key")
	}
	if model == "" || model == "nomic-embed-text" {
		model = defaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIEmbedder{
		client:     openai.NewClient(opts...),
		model:      model,
		dimensions: dimensions,
	}, nil
}

func (e *OpenAIEmbedder) Name() string    { return "openai" }
func (e *OpenAIEmbedder) Model() string   { return e.model }
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string, _ EmbeddingType) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, interrors.Embedding(e.Name(), err)
	}
	if len(resp.Data) == 0 {
		return nil, interrors.Embedding(e.Name(), fmt.Errorf("empty response"))
	}

	vec := toFloat32(resp.Data[0].Embedding)
	if err := checkDimensions(e.Name(), vec, e.dimensions); err != nil {
		return nil, err
	}
	return vec, nil
}
