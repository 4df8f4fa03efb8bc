// Package config loads and validates theoindex configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/theoindex/config.yaml)
//  3. Project config (.theoindex.yaml in the working directory)
//  4. Environment variables (THEOINDEX_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete theoindex configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	OCR        OCRConfig        `yaml:"ocr" json:"ocr"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Indexing   IndexingConfig   `yaml:"indexing" json:"indexing"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// PathsConfig configures the pipeline directories.
type PathsConfig struct {
	// Inbox is the staging directory of documents awaiting indexing.
	Inbox string `yaml:"inbox" json:"inbox"`
	// Archive is the durable JSON mirror of all indexed chunks.
	Archive string `yaml:"archive" json:"archive"`
	// Data holds the vector index, sqlite database, and lock file.
	Data string `yaml:"data" json:"data"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "ollama", "static", or empty for
	// auto-detection (Ollama when reachable, static otherwise).
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"`
}

// ChunkingConfig configures chunking behavior not already decided per
// document type by the router.
type ChunkingConfig struct {
	// MinChunkLength is the noise floor: fragments shorter than this many
	// characters are dropped.
	MinChunkLength int `yaml:"min_chunk_length" json:"min_chunk_length"`
	// TokenizerEncoding names the tiktoken encoding used for token counts.
	TokenizerEncoding string `yaml:"tokenizer_encoding" json:"tokenizer_encoding"`
}

// OCRConfig configures the external OCR toolchain.
type OCRConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Languages is the tesseract language set for the multilingual corpus.
	Languages string `yaml:"languages" json:"languages"`
	// DPI for page rasterization.
	DPI int `yaml:"dpi" json:"dpi"`
	// TesseractPath and PdftoppmPath override binary discovery via $PATH.
	TesseractPath string `yaml:"tesseract_path" json:"tesseract_path"`
	PdftoppmPath  string `yaml:"pdftoppm_path" json:"pdftoppm_path"`
}

// SearchConfig configures dual search.
type SearchConfig struct {
	MaxResults int `yaml:"max_results" json:"max_results"`
	// MaxVectorTerms caps how many expanded terms get their own vector query.
	MaxVectorTerms int     `yaml:"max_vector_terms" json:"max_vector_terms"`
	VectorBonus    float64 `yaml:"vector_bonus" json:"vector_bonus"`
	HybridBonus    float64 `yaml:"hybrid_bonus" json:"hybrid_bonus"`
}

// IndexingConfig configures the orchestrator.
type IndexingConfig struct {
	// EmbedBatchSize is the number of chunks embedded and upserted per batch.
	EmbedBatchSize int `yaml:"embed_batch_size" json:"embed_batch_size"`
	// LockTTL is the staleness timeout for the advisory lock file.
	LockTTL string `yaml:"lock_ttl" json:"lock_ttl"`
	// WatchDebounce is the settle delay for watch mode.
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// ServerConfig configures the MCP server and logging.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Inbox:   "inbox",
			Archive: "archive",
			Data:    defaultDataPath(),
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "", // auto-detect
			Model:      "nomic-embed-text",
			Dimensions: 0, // auto-detect from embedder
			BatchSize:  32,
			OllamaHost: "", // default http://localhost:11434
			CacheSize:  2048,
		},
		Chunking: ChunkingConfig{
			MinChunkLength:    100,
			TokenizerEncoding: "cl100k_base",
		},
		OCR: OCRConfig{
			Enabled:   true,
			Languages: "kor+deu+eng+grc+heb",
			DPI:       300,
		},
		Search: SearchConfig{
			MaxResults:     5,
			MaxVectorTerms: 3,
			VectorBonus:    0.2,
			HybridBonus:    0.3,
		},
		Indexing: IndexingConfig{
			EmbedBatchSize: 100,
			LockTTL:        "30m",
			WatchDebounce:  "2s",
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

func defaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".theoindex")
	}
	return filepath.Join(home, ".theoindex")
}

// GetUserConfigPath returns the path to the user configuration file,
// following the XDG Base Directory convention.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "theoindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "theoindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "theoindex", "config.yaml")
}

// Load loads configuration starting from the given directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load .theoindex.yaml or .theoindex.yml.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".theoindex.yaml", ".theoindex.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	// No config file is fine, defaults apply
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.Inbox != "" {
		c.Paths.Inbox = other.Paths.Inbox
	}
	if other.Paths.Archive != "" {
		c.Paths.Archive = other.Paths.Archive
	}
	if other.Paths.Data != "" {
		c.Paths.Data = other.Paths.Data
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Chunking.MinChunkLength != 0 {
		c.Chunking.MinChunkLength = other.Chunking.MinChunkLength
	}
	if other.Chunking.TokenizerEncoding != "" {
		c.Chunking.TokenizerEncoding = other.Chunking.TokenizerEncoding
	}

	if other.OCR.Languages != "" {
		// Any OCR section present means the enabled flag was set deliberately.
		c.OCR.Enabled = other.OCR.Enabled
		c.OCR.Languages = other.OCR.Languages
	}
	if other.OCR.DPI != 0 {
		c.OCR.DPI = other.OCR.DPI
	}
	if other.OCR.TesseractPath != "" {
		c.OCR.TesseractPath = other.OCR.TesseractPath
	}
	if other.OCR.PdftoppmPath != "" {
		c.OCR.PdftoppmPath = other.OCR.PdftoppmPath
	}

	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.MaxVectorTerms != 0 {
		c.Search.MaxVectorTerms = other.Search.MaxVectorTerms
	}
	if other.Search.VectorBonus != 0 {
		c.Search.VectorBonus = other.Search.VectorBonus
	}
	if other.Search.HybridBonus != 0 {
		c.Search.HybridBonus = other.Search.HybridBonus
	}

	if other.Indexing.EmbedBatchSize != 0 {
		c.Indexing.EmbedBatchSize = other.Indexing.EmbedBatchSize
	}
	if other.Indexing.LockTTL != "" {
		c.Indexing.LockTTL = other.Indexing.LockTTL
	}
	if other.Indexing.WatchDebounce != "" {
		c.Indexing.WatchDebounce = other.Indexing.WatchDebounce
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies THEOINDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("THEOINDEX_INBOX"); v != "" {
		c.Paths.Inbox = v
	}
	if v := os.Getenv("THEOINDEX_ARCHIVE"); v != "" {
		c.Paths.Archive = v
	}
	if v := os.Getenv("THEOINDEX_DATA"); v != "" {
		c.Paths.Data = v
	}
	if v := os.Getenv("THEOINDEX_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("THEOINDEX_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("THEOINDEX_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("THEOINDEX_OCR_LANGUAGES"); v != "" {
		c.OCR.Languages = v
	}
	if v := os.Getenv("THEOINDEX_EMBED_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Indexing.EmbedBatchSize = n
		}
	}
	if v := os.Getenv("THEOINDEX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Chunking.MinChunkLength < 0 {
		return fmt.Errorf("chunking.min_chunk_length must be non-negative, got %d", c.Chunking.MinChunkLength)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Search.MaxVectorTerms < 1 {
		return fmt.Errorf("search.max_vector_terms must be at least 1, got %d", c.Search.MaxVectorTerms)
	}
	if c.Indexing.EmbedBatchSize < 1 {
		return fmt.Errorf("indexing.embed_batch_size must be at least 1, got %d", c.Indexing.EmbedBatchSize)
	}
	if c.OCR.DPI < 72 {
		return fmt.Errorf("ocr.dpi must be at least 72, got %d", c.OCR.DPI)
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"ollama": true, "static": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'ollama', 'static', or empty (auto-detect), got %s", c.Embeddings.Provider)
		}
	}

	validTransports := map[string]bool{"stdio": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
