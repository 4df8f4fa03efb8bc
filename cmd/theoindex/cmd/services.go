package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/theolab/theoindex/internal/archive"
	"github.com/theolab/theoindex/internal/config"
	"github.com/theolab/theoindex/internal/embed"
	"github.com/theolab/theoindex/internal/extract"
	"github.com/theolab/theoindex/internal/lemma"
	"github.com/theolab/theoindex/internal/logging"
	"github.com/theolab/theoindex/internal/store"
	"github.com/theolab/theoindex/internal/ui"
)

// services bundles the long-lived collaborators commands wire together:
// vector store, embedder, archive, and lemma index builder.
type services struct {
	cfg      *config.Config
	store    *store.Store
	embedder embed.Embedder
	archive  *archive.Store
	lemmas   *lemma.Builder
	logger   *slog.Logger
}

// openServices loads configuration and opens the stores and embedder.
// The embedder opens first so the vector store matches its dimensions.
func openServices(ctx context.Context, offline bool, logger *slog.Logger) (*services, error) {
	cfg, err := config.Load(libraryDir)
	if err != nil {
		return nil, err
	}

	// Relative paths in the config are anchored to the library root, not
	// the process working directory.
	cfg.Paths.Inbox = resolvePath(libraryDir, cfg.Paths.Inbox)
	cfg.Paths.Archive = resolvePath(libraryDir, cfg.Paths.Archive)
	cfg.Paths.Data = resolvePath(libraryDir, cfg.Paths.Data)

	embedder, err := newEmbedder(ctx, cfg, offline, logger)
	if err != nil {
		return nil, err
	}

	vs, err := store.Open(store.Config{
		Dir:        cfg.Paths.Data,
		Dimensions: embedder.Dimensions(),
	}, logger)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	arch, err := archive.NewStore(cfg.Paths.Archive)
	if err != nil {
		_ = vs.Close()
		_ = embedder.Close()
		return nil, err
	}

	return &services{
		cfg:      cfg,
		store:    vs,
		embedder: embedder,
		archive:  arch,
		lemmas:   lemma.NewBuilder(arch, logger),
		logger:   logger,
	}, nil
}

func (s *services) Close() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.embedder != nil {
		_ = s.embedder.Close()
	}
}

func newEmbedder(ctx context.Context, cfg *config.Config, offline bool, logger *slog.Logger) (embed.Embedder, error) {
	provider := embed.ProviderType(cfg.Embeddings.Provider)
	if offline {
		provider = embed.ProviderStatic
	}

	ocfg := embed.DefaultOllamaConfig()
	if cfg.Embeddings.OllamaHost != "" {
		ocfg.Host = cfg.Embeddings.OllamaHost
	}
	if cfg.Embeddings.Model != "" {
		ocfg.Model = cfg.Embeddings.Model
	}
	if cfg.Embeddings.Dimensions > 0 {
		ocfg.Dimensions = cfg.Embeddings.Dimensions
	}
	if cfg.Embeddings.BatchSize > 0 {
		ocfg.BatchSize = cfg.Embeddings.BatchSize
	}

	// Embedder init probes Ollama; bound it so a hung server cannot stall
	// the CLI indefinitely.
	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return embed.NewEmbedder(initCtx, provider, ocfg, logger)
}

func newOCRClient(cfg *config.Config) *extract.OCRClient {
	if !cfg.OCR.Enabled {
		return nil
	}
	return extract.NewOCRClient(extract.OCRConfig{
		Languages:     cfg.OCR.Languages,
		DPI:           cfg.OCR.DPI,
		TesseractPath: cfg.OCR.TesseractPath,
		PdftoppmPath:  cfg.OCR.PdftoppmPath,
	})
}

// lockTTL parses the configured stale-lock timeout, zero on bad input so
// the lock falls back to its own default.
func lockTTL(cfg *config.Config) time.Duration {
	if cfg.Indexing.LockTTL == "" {
		return 0
	}
	d, err := time.ParseDuration(cfg.Indexing.LockTTL)
	if err != nil {
		slog.Warn("invalid lock_ttl, using default",
			slog.String("value", cfg.Indexing.LockTTL))
		return 0
	}
	return d
}

func terminalStyles() ui.Styles {
	return ui.GetStyles(noColor || ui.DetectNoColor())
}

func embedderInfo(e embed.Embedder) ui.EmbedderInfo {
	info := ui.EmbedderInfo{
		Model:      e.ModelName(),
		Dimensions: e.Dimensions(),
	}
	if c, ok := e.(*embed.CachedEmbedder); ok {
		info.Model = c.Inner().ModelName()
	}
	if _, ok := unwrapEmbedder(e).(*embed.StaticEmbedder); ok {
		info.Fallback = true
	}
	return info
}

func unwrapEmbedder(e embed.Embedder) embed.Embedder {
	if c, ok := e.(*embed.CachedEmbedder); ok {
		return c.Inner()
	}
	return e
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func logFileHint() string {
	return logging.DefaultLogPath()
}

// requireIndex fails with a hint when nothing has been indexed yet.
func requireIndex(ctx context.Context, s *services) error {
	count, err := s.store.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("index is empty. Run 'theoindex index' first")
	}
	return nil
}
