package embeddings

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/streed/synapse/internal/constants"
)

// HashEmbedder is a local feature-hashing embedder. Each word and each
// character trigram of a word is hashed to a signed bucket, so texts sharing
// words or word stems land close together.
type HashEmbedder struct {
	dimensions int
}

func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = constants.DefaultDimensions
	}
	return &HashEmbedder{dimensions: dimensions}
}

func (h *HashEmbedder) Name() string    { return "hash" }
func (h *HashEmbedder) Model() string   { return "feature-hash" }
func (h *HashEmbedder) Dimensions() int { return h.dimensions }

func (h *HashEmbedder) Embed(_ context.Context, text string, _ EmbeddingType) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	return h.embed(text), nil
}

func (h *HashEmbedder) embed(text string) []float32 {
	vec := make([]float32, h.dimensions)

	words := tokenize(text)
	if len(words) == 0 {
		// Punctuation-only input still needs a non-zero vector.
		words = []string{strings.TrimSpace(strings.ToLower(text))}
	}

	for _, word := range words {
		h.add(vec, "w:"+word, 1)
		for _, gram := range trigrams(word) {
			h.add(vec, "t:"+gram, constants.TrigramWeight)
		}
	}

	normalize(vec)
	return vec
}

func (h *HashEmbedder) add(vec []float32, feature string, weight float32) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()

	idx := int(sum % uint64(h.dimensions))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// trigrams pads word with spaces so prefixes and suffixes get their own grams.
func trigrams(word string) []string {
	runes := []rune(" " + word + " ")
	if len(runes) < 3 {
		return nil
	}
	grams := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+3]))
	}
	return grams
}
