package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/theolab/theoindex/internal/archive"
	"github.com/theolab/theoindex/internal/embed"
	"github.com/theolab/theoindex/internal/lemma"
	"github.com/theolab/theoindex/internal/search"
	"github.com/theolab/theoindex/internal/store"
	"github.com/theolab/theoindex/pkg/version"
)

// Searcher is the search port the server depends on.
type Searcher interface {
	Search(ctx context.Context, query string, n int, f search.Filters) ([]search.Result, error)
}

// Server is the MCP server for theoindex.
// It bridges AI clients (Claude Code, Cursor) with the dual search engine
// and the lemma index.
type Server struct {
	mcp      *mcp.Server
	engine   Searcher
	store    store.VectorStore
	archive  *archive.Store
	lemmas   *lemma.Builder
	embedder embed.Embedder // may be nil, reported as unavailable
	logger   *slog.Logger

	defaultLimit int
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server. The embedder is used for capability
// signaling only; searches go through the engine.
func NewServer(engine Searcher, vs store.VectorStore, arch *archive.Store, lemmas *lemma.Builder, embedder embed.Embedder, defaultLimit int, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if vs == nil {
		return nil, errors.New("vector store is required")
	}
	if arch == nil {
		return nil, errors.New("archive store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if defaultLimit <= 0 {
		defaultLimit = 5
	}

	s := &Server{
		engine:       engine,
		store:        vs,
		archive:      arch,
		lemmas:       lemmas,
		embedder:     embedder,
		logger:       logger,
		defaultLimit: defaultLimit,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "theoindex",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "theoindex", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "theo_search",
			Description: "Search the theological library. Combines semantic vector search with keyword matching over the chunk archive, with multilingual query expansion (Korean, English, German, Greek). Filter by source, document type, or tags.",
		},
		{
			Name:        "lemma_lookup",
			Description: "Look up a dictionary headword (lemma) and list the archive entries that define it, with source, volume, and page. Use for precise dictionary access instead of free-text search.",
		},
		{
			Name:        "index_status",
			Description: "Check index size, indexed sources, and which embedder is active. Use before searching to verify the index is ready.",
		},
	}
}

// CallTool invokes a tool by name with untyped arguments. This is the
// direct-invocation path used by the CLI and tests; MCP clients go through
// the typed SDK handlers.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "theo_search":
		return s.handleSearchTool(ctx, args)
	case "lemma_lookup":
		return s.handleLemmaLookupTool(ctx, args)
	case "index_status":
		return s.handleIndexStatusTool(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// handleSearchTool handles a theo_search invocation with untyped arguments.
// Returns markdown-formatted results.
func (s *Server) handleSearchTool(ctx context.Context, args map[string]any) (string, error) {
	start := time.Now()
	requestID := generateRequestID()

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return "", NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	limit := s.defaultLimit
	if l, ok := args["limit"].(float64); ok {
		limit = clampLimit(int(l), s.defaultLimit, 1, 50)
	}

	filters := search.Filters{}
	if src, ok := args["source"].(string); ok {
		filters.Source = src
	}
	if dt, ok := args["doc_type"].(string); ok {
		filters.DocType = dt
	}
	if tags, ok := args["tags"].([]interface{}); ok {
		for _, t := range tags {
			if str, ok := t.(string); ok {
				filters.Tags = append(filters.Tags, str)
			}
		}
	}

	s.logger.Info("theo_search started",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("limit", limit))

	results, err := s.engine.Search(ctx, query, limit, filters)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("theo_search failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", MapError(err)
	}

	s.logger.Info("theo_search completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(results)))

	return FormatSearchResults(query, results), nil
}

// handleLemmaLookupTool handles a lemma_lookup invocation with untyped
// arguments. Returns markdown-formatted entries.
func (s *Server) handleLemmaLookupTool(ctx context.Context, args map[string]any) (string, error) {
	term, ok := args["lemma"].(string)
	if !ok || strings.TrimSpace(term) == "" {
		return "", NewInvalidParamsError("lemma parameter is required and must be a non-empty string")
	}

	var sourceFilter, categoryFilter string
	if src, ok := args["source"].(string); ok {
		sourceFilter = src
	}
	if cat, ok := args["category"].(string); ok {
		categoryFilter = cat
	}

	out, err := s.lookupLemma(ctx, term, sourceFilter, categoryFilter)
	if err != nil {
		return "", MapError(err)
	}
	return FormatLemmaEntries(out), nil
}

// lookupLemma loads the lemma index and resolves one headword.
// The index is re-read per call so lookups see the latest build; the file
// is small enough that this beats cache invalidation bookkeeping.
func (s *Server) lookupLemma(ctx context.Context, term, sourceFilter, categoryFilter string) (*LemmaLookupOutput, error) {
	if s.lemmas == nil {
		return nil, &MCPError{Code: ErrCodeIndexNotFound, Message: "Lemma index not configured. Run 'theoindex lemma build' first."}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx, err := s.lemmas.Load()
	if err != nil {
		return nil, err
	}

	normalized := lemma.Normalize(term)
	entries := idx.Lookup(term, sourceFilter, categoryFilter)

	out := &LemmaLookupOutput{
		Lemma: normalized,
		Found: len(entries) > 0,
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, LemmaEntryOutput{
			File:     e.File,
			Source:   e.Source,
			Volume:   e.Volume,
			Page:     e.Page,
			Category: e.Category,
			Related:  e.Related,
		})
	}
	return out, nil
}

// handleIndexStatusTool reports index statistics and embedder capability.
func (s *Server) handleIndexStatusTool(ctx context.Context) (*IndexStatusOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	sources, err := s.store.Sources(ctx)
	if err != nil {
		return nil, MapError(err)
	}

	archiveFiles := 0
	if files, err := s.archive.Files(); err == nil {
		archiveFiles = len(files)
	}

	out := &IndexStatusOutput{
		ChunkCount:   count,
		SourceCount:  len(sources),
		Sources:      sources,
		ArchiveFiles: archiveFiles,
		Embeddings:   s.embeddingInfo(ctx),
	}

	s.logger.Info("index_status completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("chunk_count", count),
		slog.Int("source_count", len(sources)))

	return out, nil
}

// embeddingInfo derives the capability block from the live embedder.
func (s *Server) embeddingInfo(ctx context.Context) EmbeddingInfo {
	if s.embedder == nil {
		return EmbeddingInfo{
			Model:            "none",
			Status:           "unavailable",
			IsFallbackActive: true,
			SemanticQuality:  "none",
		}
	}

	model := s.embedder.ModelName()
	fallback := strings.HasPrefix(model, "static")

	info := EmbeddingInfo{
		Model:            model,
		Dimensions:       s.embedder.Dimensions(),
		IsFallbackActive: fallback,
		SemanticQuality:  "high",
	}
	if fallback {
		info.SemanticQuality = "low"
	}
	if s.embedder.Available(ctx) {
		info.Status = "ready"
	} else {
		info.Status = "unavailable"
	}
	return info
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	tools := s.ListTools()

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[0].Name,
		Description: tools[0].Description,
	}, s.mcpSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[1].Name,
		Description: tools[1].Description,
	}, s.mcpLemmaLookupHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[2].Name,
		Description: tools[2].Description,
	}, s.mcpIndexStatusHandler)

	s.logger.Debug("MCP tools registered", slog.Int("count", len(tools)))
}

// mcpSearchHandler is the MCP SDK handler for the theo_search tool.
func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	limit := s.defaultLimit
	if input.Limit > 0 {
		limit = clampLimit(input.Limit, s.defaultLimit, 1, 50)
	}

	filters := search.Filters{
		Source:  input.Source,
		DocType: input.DocType,
		Tags:    input.Tags,
	}

	results, err := s.engine.Search(ctx, input.Query, limit, filters)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, 0, len(results)),
	}
	for _, r := range results {
		output.Results = append(output.Results, ToSearchResultOutput(r))
	}
	return nil, output, nil
}

// mcpLemmaLookupHandler is the MCP SDK handler for the lemma_lookup tool.
func (s *Server) mcpLemmaLookupHandler(ctx context.Context, _ *mcp.CallToolRequest, input LemmaLookupInput) (
	*mcp.CallToolResult,
	*LemmaLookupOutput,
	error,
) {
	if strings.TrimSpace(input.Lemma) == "" {
		return nil, nil, NewInvalidParamsError("lemma parameter is required")
	}

	out, err := s.lookupLemma(ctx, input.Lemma, input.Source, input.Category)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, out, nil
}

// mcpIndexStatusHandler is the MCP SDK handler for the index_status tool.
func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	out, err := s.handleIndexStatusTool(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server",
		slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
