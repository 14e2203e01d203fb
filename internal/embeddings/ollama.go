package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/streed/synapse/internal/logger"
)

// OllamaEmbedder calls a local Ollama server and falls back to the hash
// embedder whenever the server cannot be used.
type OllamaEmbedder struct {
	endpoint   string
	model      string
	dimensions int
	client     *http.Client
	fallback   *HashEmbedder
}

func NewOllamaEmbedder(endpoint, model string, dimensions int) *OllamaEmbedder {
	return &OllamaEmbedder{
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
		fallback:   NewHashEmbedder(dimensions),
	}
}

func (e *OllamaEmbedder) Name() string    { return "ollama" }
func (e *OllamaEmbedder) Model() string   { return e.model }
func (e *OllamaEmbedder) Dimensions() int { return e.dimensions }

// formatTextForNomic adds the task prefixes nomic-embed-text expects.
// See: https://docs.nomic.ai/reference/endpoints/nomic-embed-text
func (e *OllamaEmbedder) formatTextForNomic(text string, kind EmbeddingType) string {
	if !strings.Contains(strings.ToLower(e.model), "nomic") {
		return text
	}
	switch kind {
	case EmbeddingTypeSearch:
		return "search_query: " + text
	case EmbeddingTypeDocument:
		return "search_document: " + text
	default:
		return text
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string, kind EmbeddingType) ([]float32, error) {
	vec, _, err := e.embedWithSource(ctx, text, kind)
	return vec, err
}

// embedWithSource is Embed that also reports whether the vector came from
// the hash fallback instead of the server.
func (e *OllamaEmbedder) embedWithSource(ctx context.Context, text string, kind EmbeddingType) ([]float32, bool, error) {
	if err := validateText(text); err != nil {
		return nil, false, err
	}

	vec, err := e.request(ctx, e.formatTextForNomic(text, kind))
	if err != nil {
		logger.Warn("Ollama embedding failed: %v, using hash fallback; run 'synapse reindex' once Ollama is back", err)
		return e.fallback.embed(text), true, nil
	}
	if err := checkDimensions(e.Name(), vec, e.dimensions); err != nil {
		return nil, false, err
	}
	return vec, false, nil
}

func (e *OllamaEmbedder) request(ctx context.Context, prompt string) ([]float32, error) {
	payload, err := json.Marshal(map[string]string{
		"model":  e.model,
		"prompt": prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := e.endpoint + "/api/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	logger.Debug("Ollama response status: %d, time: %v", resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}
	return result.Embedding, nil
}
