// Package store persists embedded chunks: an HNSW graph answers
// nearest-neighbor queries and a SQLite table holds chunk text and metadata.
// The JSON archive (internal/archive), not this store, is the re-indexing
// source of truth; the store can always be rebuilt from it.
package store

import (
	"context"
	"fmt"

	"github.com/theolab/theoindex/internal/chunk"
	"github.com/theolab/theoindex/internal/meta"
)

// Result is one vector-search hit with its chunk payload.
type Result struct {
	ID       string
	Text     string
	Metadata meta.ChunkMeta
	Score    float32
	Distance float32
}

// VectorStore is the persistence port the orchestrator and search engine
// depend on.
type VectorStore interface {
	// Upsert inserts or replaces chunks with their embeddings.
	Upsert(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error

	// DeleteBySource removes every chunk belonging to a source document.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// Query returns the k nearest chunks to the query vector.
	Query(ctx context.Context, vector []float32, k int) ([]Result, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Sources returns the distinct source documents in the store.
	Sources(ctx context.Context) ([]string, error)

	// Close persists pending state and releases resources.
	Close() error
}

// ErrDimensionMismatch reports a vector of the wrong width.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
