package embed

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// ProviderType selects an embedding backend.
type ProviderType string

const (
	// ProviderOllama uses a local Ollama server.
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses deterministic hash embeddings.
	ProviderStatic ProviderType = "static"

	// ProviderAuto tries Ollama and degrades to static.
	ProviderAuto ProviderType = "auto"
)

// envProvider overrides the configured provider when set.
const envProvider = "THEOINDEX_EMBEDDER"

// envCacheDisable disables the query-embedding cache when set falsy-off.
const envCacheDisable = "THEOINDEX_EMBED_CACHE"

// NewEmbedder builds an embedder for the provider, wrapped in the LRU query
// cache. With ProviderAuto an unreachable Ollama degrades to the static
// embedder with a warning instead of failing; an explicitly requested
// provider never silently degrades.
func NewEmbedder(ctx context.Context, provider ProviderType, cfg OllamaConfig, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if env := strings.ToLower(os.Getenv(envProvider)); env != "" {
		provider = ProviderType(env)
	}

	var embedder Embedder
	var err error

	switch provider {
	case ProviderStatic:
		embedder = NewStaticEmbedder()

	case ProviderOllama:
		embedder, err = NewOllamaEmbedder(ctx, cfg)
		if err != nil {
			return nil, err
		}

	default:
		embedder, err = NewOllamaEmbedder(ctx, cfg)
		if err != nil {
			logger.Warn("embedder_degraded_to_static",
				slog.String("reason", err.Error()))
			embedder = NewStaticEmbedder()
		}
	}

	if !cacheDisabled() {
		embedder = NewCachedEmbedder(embedder, DefaultEmbeddingCacheSize)
	}

	logger.Info("embedder_ready",
		slog.String("model", embedder.ModelName()),
		slog.Int("dimensions", embedder.Dimensions()))
	return embedder, nil
}

func cacheDisabled() bool {
	v := strings.ToLower(os.Getenv(envCacheDisable))
	return v == "false" || v == "0" || v == "off"
}
