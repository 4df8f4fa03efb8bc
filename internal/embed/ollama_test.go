package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOllama serves /api/tags and /api/embed with fixed 4-dimensional
// vectors derived from the input length.
func fakeOllama(t *testing.T, installed ...string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		type model struct {
			Name string `json:"name"`
		}
		var models []model
		for _, name := range installed {
			models = append(models, model{Name: name})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"models": models})
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var inputs []string
		switch in := req.Input.(type) {
		case string:
			inputs = []string{in}
		case []any:
			for _, v := range in {
				inputs = append(inputs, v.(string))
			}
		}

		embeddings := make([][]float64, len(inputs))
		for i, text := range inputs {
			embeddings[i] = []float64{float64(len(text)), 1, 0, 0}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"model": req.Model, "embeddings": embeddings})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedderResolvesModelAndDimensions(t *testing.T) {
	// Given a server with the primary model installed under a tag
	srv := fakeOllama(t, "bge-m3:latest")

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	// Then the tagged name is resolved and dimensions are probed
	assert.Equal(t, "bge-m3:latest", e.ModelName())
	assert.Equal(t, 4, e.Dimensions())
	assert.True(t, e.Available(context.Background()))
}

func TestOllamaEmbedderFallbackModel(t *testing.T) {
	// Given only a fallback model installed
	srv := fakeOllama(t, "nomic-embed-text")

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "nomic-embed-text", e.ModelName())
}

func TestOllamaEmbedderNoModelInstalled(t *testing.T) {
	srv := fakeOllama(t)

	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	assert.Error(t, err)
}

func TestOllamaEmbedderNormalizesVectors(t *testing.T) {
	srv := fakeOllama(t, "bge-m3")

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "Gnade und Glaube")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestOllamaEmbedderBatchKeepsEmptySlots(t *testing.T) {
	srv := fakeOllama(t, "bge-m3")

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	// When a batch contains an empty text
	vecs, err := e.EmbedBatch(context.Background(), []string{"erster Text", "", "zweiter Text"})
	require.NoError(t, err)

	// Then the empty slot holds a zero vector of the detected width
	require.Len(t, vecs, 3)
	assert.Equal(t, make([]float32, 4), vecs[1])
	assert.NotEqual(t, vecs[0], vecs[1])
}

func TestOllamaEmbedderClosed(t *testing.T) {
	srv := fakeOllama(t, "bge-m3")

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	require.NoError(t, e.Close())

	_, err = e.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestFactoryStaticProvider(t *testing.T) {
	e, err := NewEmbedder(context.Background(), ProviderStatic, OllamaConfig{}, nil)
	require.NoError(t, err)

	// The factory wraps the backend in the query cache
	cached, ok := e.(*CachedEmbedder)
	require.True(t, ok)
	assert.Equal(t, "static-hash", cached.ModelName())
}

func TestFactoryAutoDegradesToStatic(t *testing.T) {
	// Given an unreachable Ollama host
	cfg := OllamaConfig{Host: "http://127.0.0.1:1"}

	e, err := NewEmbedder(context.Background(), ProviderAuto, cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, "static-hash", e.ModelName())
}

func TestFactoryOllamaProviderFailsHard(t *testing.T) {
	cfg := OllamaConfig{Host: "http://127.0.0.1:1"}

	_, err := NewEmbedder(context.Background(), ProviderOllama, cfg, nil)
	assert.Error(t, err)
}
