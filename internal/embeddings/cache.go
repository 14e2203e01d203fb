package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/streed/synapse/internal/constants"
	"github.com/streed/synapse/internal/logger"
	"go.etcd.io/bbolt"
)

var bucketEmbeddings = []byte("embeddings")

// fallbackProvider is implemented by providers that can substitute a
// degraded embedding when their backend is unavailable.
type fallbackProvider interface {
	embedWithSource(ctx context.Context, text string, kind EmbeddingType) (vec []float32, fellBack bool, err error)
}

// Cached stores embeddings produced by the wrapped provider in a bbolt file
// so repeated texts skip the model call. Fallback vectors are never stored.
type Cached struct {
	Provider
	db *bbolt.DB
}

func NewCached(p Provider, path string) (*Cached, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DataDirMode); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bbolt.Open(path, constants.ConfigFileMode, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &Cached{Provider: p, db: db}, nil
}

func (c *Cached) key(text string, kind EmbeddingType) []byte {
	sum := sha256.Sum256([]byte(c.Provider.Name() + "|" + c.Provider.Model() + "|" + string(kind) + "|" + text))
	return []byte(hex.EncodeToString(sum[:]))
}

func (c *Cached) Embed(ctx context.Context, text string, kind EmbeddingType) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	key := c.key(text, kind)
	var hit []float32
	_ = c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEmbeddings).Get(key)
		if data == nil {
			return nil
		}
		vec, err := BytesToEmbedding(data)
		if err == nil && len(vec) == c.Provider.Dimensions() {
			hit = vec
		}
		return nil
	})
	if hit != nil {
		logger.Debug("Embedding cache hit for %s", key[:12])
		return hit, nil
	}

	vec, fellBack, err := c.embed(ctx, text, kind)
	if err != nil {
		return nil, err
	}
	if fellBack {
		return vec, nil
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).Put(key, EmbeddingToBytes(vec))
	})
	if err != nil {
		logger.Warn("Failed to store embedding in cache: %v", err)
	}
	return vec, nil
}

func (c *Cached) embed(ctx context.Context, text string, kind EmbeddingType) ([]float32, bool, error) {
	if fp, ok := c.Provider.(fallbackProvider); ok {
		return fp.embedWithSource(ctx, text, kind)
	}
	vec, err := c.Provider.Embed(ctx, text, kind)
	return vec, false, err
}

// Len reports the number of cached embeddings.
func (c *Cached) Len() int {
	n := 0
	_ = c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEmbeddings).Stats().KeyN
		return nil
	})
	return n
}

func (c *Cached) Close() error {
	return c.db.Close()
}
