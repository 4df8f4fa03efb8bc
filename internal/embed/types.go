// Package embed generates vector embeddings for text chunks. The primary
// backend is a local Ollama server running a multilingual embedding model;
// a deterministic hash-based embedder serves as the offline fallback.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the per-request batch size against the backend.
	DefaultBatchSize = 32

	// MaxBatchSize caps a single request to bound backend memory.
	MaxBatchSize = 256

	// DefaultWarmTimeout applies when the model is already loaded.
	DefaultWarmTimeout = 60 * time.Second

	// DefaultColdTimeout applies on first use, when the backend may still
	// need to load the model from disk.
	DefaultColdTimeout = 180 * time.Second

	// ModelUnloadThreshold is how long Ollama keeps an idle model resident.
	ModelUnloadThreshold = 5 * time.Minute

	// DefaultMaxRetries for transient backend failures.
	DefaultMaxRetries = 3

	// DefaultDimensions is the bge-m3 embedding width.
	DefaultDimensions = 1024

	// StaticDimensions is the hash embedder's vector width.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding width.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector scales a vector to unit length. The zero vector is
// returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
