package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kalambet/folio/internal/retrieval"
)

var _ retrieval.VectorCache = (*EmbeddingCache)(nil)

// EmbeddingCache persists document vectors in the embeddings table. It
// satisfies retrieval.VectorCache.
type EmbeddingCache struct {
	store *Store
}

// Embeddings returns the store's embedding cache.
func (s *Store) Embeddings() *EmbeddingCache {
	return &EmbeddingCache{store: s}
}

func (c *EmbeddingCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	var blob []byte
	err := c.store.db.QueryRowContext(ctx, `SELECT vector FROM embeddings WHERE cache_key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading embedding: %w", err)
	}
	vec, err := decodeFloat32s(blob)
	if err != nil {
		return nil, false, fmt.Errorf("decoding embedding %s: %w", key, err)
	}
	return vec, true, nil
}

func (c *EmbeddingCache) Put(ctx context.Context, key string, vec []float32) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (cache_key, dims, vector, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET dims = excluded.dims, vector = excluded.vector, created_at = excluded.created_at`,
		key, len(vec), encodeFloat32s(vec), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing embedding: %w", err)
	}
	return nil
}

// Count returns the number of stored vectors.
func (c *EmbeddingCache) Count(ctx context.Context) (int, error) {
	var n int
	err := c.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n)
	return n, err
}

// encodeFloat32s serializes a vector as little-endian float32 bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s reverses encodeFloat32s.
func decodeFloat32s(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
