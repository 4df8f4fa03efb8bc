package embed

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"

	pipeerr "github.com/theolab/theoindex/internal/errors"
)

// StaticEmbedder generates deterministic hash-based embeddings without any
// backend. It keeps the pipeline usable offline: same text always yields the
// same vector, so exact and near-duplicate chunks still cluster, at reduced
// semantic quality.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*StaticEmbedder)(nil)

// Term and character-ngram contributions to the vector.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// stopWords are high-frequency function words that would otherwise dominate
// the hash buckets. German and English carry most of the corpus; Korean
// particles are attached to the word and handled by the ngram pass instead.
var stopWords = map[string]bool{
	"der": true, "die": true, "das": true, "und": true, "ist": true,
	"von": true, "den": true, "des": true, "dem": true, "ein": true,
	"eine": true, "nicht": true, "als": true, "auch": true, "auf": true,
	"the": true, "and": true, "of": true, "to": true, "in": true,
	"is": true, "that": true, "for": true, "with": true, "not": true,
}

// tokenRe matches word runs across the Latin, Greek, Hebrew, and Hangul
// scripts of the corpus.
var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// NewStaticEmbedder creates the offline fallback embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed generates a deterministic embedding for text.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, pipeerr.New(pipeerr.ErrCodeInternal, "embedder is closed", nil)
	}
	e.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, StaticDimensions), nil
	}
	return normalizeVector(e.generateVector(trimmed)), nil
}

// EmbedBatch embeds each text independently.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = vec
	}
	return results, nil
}

func (e *StaticEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, StaticDimensions)

	for _, token := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if stopWords[token] {
			continue
		}
		vector[hashToIndex(token)] += tokenWeight
	}

	// Character ngrams catch inflected forms and agglutinated particles the
	// token pass misses.
	runes := []rune(strings.ToLower(strings.Join(strings.Fields(text), " ")))
	for i := 0; i+ngramSize <= len(runes); i++ {
		vector[hashToIndex(string(runes[i:i+ngramSize]))] += ngramWeight
	}

	return vector
}

func hashToIndex(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(StaticDimensions))
}

func (e *StaticEmbedder) Dimensions() int { return StaticDimensions }

func (e *StaticEmbedder) ModelName() string { return "static-hash" }

// Available always reports true: the static embedder has no backend.
func (e *StaticEmbedder) Available(ctx context.Context) bool { return true }

func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
