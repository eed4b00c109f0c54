package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/kalambet/folio/internal/docset"
)

// VectorCache is the side-table that remembers document embeddings between
// queries. Keys come from CacheKey.
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Put(ctx context.Context, key string, vec []float32) error
}

// CacheKey identifies the embedding of doc under model. The text hash makes
// an edited document miss instead of reusing a stale vector.
func CacheKey(model string, doc docset.Document) string {
	sum := sha256.Sum256([]byte(doc.Text))
	return model + "|" + doc.ID + "|" + hex.EncodeToString(sum[:8])
}

// MemoryCache is a process-local VectorCache.
type MemoryCache struct {
	mu   sync.RWMutex
	vecs map[string][]float32
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{vecs: make(map[string][]float32)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vecs[key]
	return v, ok, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, vec []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vecs[key] = vec
	return nil
}

// Len returns the number of cached vectors.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vecs)
}
