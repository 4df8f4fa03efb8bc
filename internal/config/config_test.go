package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, 100, cfg.Chunking.MinChunkLength)
	assert.Equal(t, "cl100k_base", cfg.Chunking.TokenizerEncoding)
	assert.Equal(t, "kor+deu+eng+grc+heb", cfg.OCR.Languages)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, 100, cfg.Indexing.EmbedBatchSize)
	assert.Equal(t, 3, cfg.Search.MaxVectorTerms)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
paths:
  inbox: /data/inbox
  archive: /data/archive
embeddings:
  model: mxbai-embed-large
  batch_size: 16
search:
  max_results: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".theoindex.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/data/inbox", cfg.Paths.Inbox)
	assert.Equal(t, "/data/archive", cfg.Paths.Archive)
	assert.Equal(t, "mxbai-embed-large", cfg.Embeddings.Model)
	assert.Equal(t, 16, cfg.Embeddings.BatchSize)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	// Untouched fields keep their defaults.
	assert.Equal(t, 100, cfg.Chunking.MinChunkLength)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".theoindex.yaml"),
		[]byte("paths:\n  inbox: /from/file\n"), 0o644))

	t.Setenv("THEOINDEX_INBOX", "/from/env")
	t.Setenv("THEOINDEX_EMBED_BATCH_SIZE", "25")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.Paths.Inbox)
	assert.Equal(t, 25, cfg.Indexing.EmbedBatchSize)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "inbox", cfg.Paths.Inbox)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "weaviate" }},
		{"zero batch size", func(c *Config) { c.Indexing.EmbedBatchSize = 0 }},
		{"low dpi", func(c *Config) { c.OCR.DPI = 50 }},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "loud" }},
		{"zero vector terms", func(c *Config) { c.Search.MaxVectorTerms = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".theoindex.yaml")

	cfg := NewConfig()
	cfg.Paths.Inbox = "/books/inbox"
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/books/inbox", loaded.Paths.Inbox)
}
