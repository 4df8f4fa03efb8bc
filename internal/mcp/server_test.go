package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theolab/theoindex/internal/archive"
	"github.com/theolab/theoindex/internal/chunk"
	"github.com/theolab/theoindex/internal/embed"
	pipeerr "github.com/theolab/theoindex/internal/errors"
	"github.com/theolab/theoindex/internal/lemma"
	"github.com/theolab/theoindex/internal/meta"
	"github.com/theolab/theoindex/internal/search"
	"github.com/theolab/theoindex/internal/store"
)

// fakeSearcher returns canned results.
type fakeSearcher struct {
	results []search.Result
	err     error
	lastN   int
	lastF   search.Filters
}

func (f *fakeSearcher) Search(_ context.Context, _ string, n int, filters search.Filters) ([]search.Result, error) {
	f.lastN = n
	f.lastF = filters
	return f.results, f.err
}

// fakeStore reports fixed counts.
type fakeStore struct {
	count   int
	sources []string
}

func (f *fakeStore) Upsert(context.Context, []chunk.Chunk, [][]float32) error { return nil }
func (f *fakeStore) DeleteBySource(context.Context, string) (int, error)      { return 0, nil }
func (f *fakeStore) Query(context.Context, []float32, int) ([]store.Result, error) {
	return nil, nil
}
func (f *fakeStore) Count(context.Context) (int, error)      { return f.count, nil }
func (f *fakeStore) Sources(context.Context) ([]string, error) { return f.sources, nil }
func (f *fakeStore) Close() error                              { return nil }

func testServer(t *testing.T, engine Searcher, vs store.VectorStore) (*Server, *archive.Store) {
	t.Helper()
	arch, err := archive.NewStore(t.TempDir())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lemmas := lemma.NewBuilder(arch, logger)

	s, err := NewServer(engine, vs, arch, lemmas, embed.NewStaticEmbedder(), 5, logger)
	require.NoError(t, err)
	return s, arch
}

func intPtr(n int) *int { return &n }

func sampleResults() []search.Result {
	return []search.Result{
		{
			Content: "Die Rechtfertigung des Menschen geschieht allein aus Gnade.",
			Source:  "KD",
			Author:  "Barth",
			DocType: string(meta.Dogmatics),
			Page:    intPtr(583),
			Score:   1.3,
			Method:  "hybrid",
			Metadata: meta.ChunkMeta{
				Volume: intPtr(4),
			},
		},
		{
			Content: "GNADE bezeichnet die freie Zuwendung Gottes.",
			Source:  "TRE",
			DocType: string(meta.Dictionary),
			Score:   1.2,
			Method:  "vector",
			Metadata: meta.ChunkMeta{
				Lemma: "gnade",
			},
		},
	}
}

func TestNewServerRequiresCollaborators(t *testing.T) {
	arch, err := archive.NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = NewServer(nil, &fakeStore{}, arch, nil, nil, 5, nil)
	assert.Error(t, err)

	_, err = NewServer(&fakeSearcher{}, nil, arch, nil, nil, 5, nil)
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	s, _ := testServer(t, &fakeSearcher{}, &fakeStore{})

	tools := s.ListTools()

	require.Len(t, tools, 3)
	names := []string{tools[0].Name, tools[1].Name, tools[2].Name}
	assert.Equal(t, []string{"theo_search", "lemma_lookup", "index_status"}, names)
}

func TestCallToolUnknownName(t *testing.T) {
	s, _ := testServer(t, &fakeSearcher{}, &fakeStore{})

	_, err := s.CallTool(context.Background(), "grep", nil)

	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeMethodNotFound, me.Code)
}

func TestSearchToolFormatsResults(t *testing.T) {
	// Given an engine with two results
	engine := &fakeSearcher{results: sampleResults()}
	s, _ := testServer(t, engine, &fakeStore{})

	// When theo_search runs
	out, err := s.CallTool(context.Background(), "theo_search", map[string]any{
		"query": "Rechtfertigung",
	})

	// Then the markdown carries the citations
	require.NoError(t, err)
	text, ok := out.(string)
	require.True(t, ok)
	assert.Contains(t, text, "Barth, KD, Bd. 4, S. 583")
	assert.Contains(t, text, "hybrid")
	assert.Contains(t, text, "**Lemma:** gnade")
	assert.Equal(t, 5, engine.lastN)
}

func TestSearchToolPassesFilters(t *testing.T) {
	engine := &fakeSearcher{}
	s, _ := testServer(t, engine, &fakeStore{})

	_, err := s.CallTool(context.Background(), "theo_search", map[string]any{
		"query":    "Gnade",
		"limit":    float64(3),
		"source":   "TRE",
		"doc_type": "dictionary",
		"tags":     []interface{}{"lexicon"},
	})

	require.NoError(t, err)
	assert.Equal(t, 3, engine.lastN)
	assert.Equal(t, "TRE", engine.lastF.Source)
	assert.Equal(t, "dictionary", engine.lastF.DocType)
	assert.Equal(t, []string{"lexicon"}, engine.lastF.Tags)
}

func TestSearchToolRejectsEmptyQuery(t *testing.T) {
	s, _ := testServer(t, &fakeSearcher{}, &fakeStore{})

	_, err := s.CallTool(context.Background(), "theo_search", map[string]any{
		"query": "   ",
	})

	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeInvalidParams, me.Code)
}

func TestSearchToolMapsEngineError(t *testing.T) {
	engine := &fakeSearcher{
		err: pipeerr.New(pipeerr.ErrCodeInvalidQuery, "empty search query", nil),
	}
	s, _ := testServer(t, engine, &fakeStore{})

	_, err := s.CallTool(context.Background(), "theo_search", map[string]any{
		"query": "x",
	})

	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeInvalidParams, me.Code)
}

func TestLemmaLookupTool(t *testing.T) {
	// Given a persisted lemma index in the archive directory
	s, arch := testServer(t, &fakeSearcher{}, &fakeStore{})
	idx := map[string]any{
		"version": 1,
		"entries": map[string]any{
			"gnade": []map[string]any{
				{"file": "TRE_Bd13.json", "source": "TRE", "volume": 13, "page": 459, "category": []string{"soteriology"}},
			},
		},
	}
	data, err := json.Marshal(idx)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(arch.Dir(), lemma.IndexFile), data, 0o644))

	// When the lemma is looked up with uppercase input
	out, err := s.CallTool(context.Background(), "lemma_lookup", map[string]any{
		"lemma": "GNADE",
	})

	// Then the formatted entry names its location
	require.NoError(t, err)
	text, ok := out.(string)
	require.True(t, ok)
	assert.Contains(t, text, "## gnade")
	assert.Contains(t, text, "TRE, Bd. 13, S. 459")
	assert.Contains(t, text, "soteriology")
}

func TestLemmaLookupToolMiss(t *testing.T) {
	s, _ := testServer(t, &fakeSearcher{}, &fakeStore{})

	out, err := s.CallTool(context.Background(), "lemma_lookup", map[string]any{
		"lemma": "nirgendwo",
	})

	require.NoError(t, err)
	assert.Contains(t, out.(string), "not in the index")
}

func TestIndexStatusTool(t *testing.T) {
	// Given a store with chunks and one archived envelope
	vs := &fakeStore{count: 42, sources: []string{"KD", "TRE"}}
	s, arch := testServer(t, &fakeSearcher{}, vs)
	require.NoError(t, arch.Write("notes", &archive.Document{
		Source:   "notes.txt",
		Metadata: meta.NewParsed(),
	}))

	out, err := s.CallTool(context.Background(), "index_status", nil)

	require.NoError(t, err)
	status, ok := out.(*IndexStatusOutput)
	require.True(t, ok)
	assert.Equal(t, 42, status.ChunkCount)
	assert.Equal(t, 2, status.SourceCount)
	assert.Equal(t, []string{"KD", "TRE"}, status.Sources)
	assert.Equal(t, 1, status.ArchiveFiles)
	assert.Equal(t, "static-hash", status.Embeddings.Model)
	assert.Equal(t, embed.StaticDimensions, status.Embeddings.Dimensions)
	assert.True(t, status.Embeddings.IsFallbackActive)
	assert.Equal(t, "ready", status.Embeddings.Status)
	assert.Equal(t, "low", status.Embeddings.SemanticQuality)
}

func TestEmbeddingInfoWithoutEmbedder(t *testing.T) {
	arch, err := archive.NewStore(t.TempDir())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := NewServer(&fakeSearcher{}, &fakeStore{}, arch, nil, nil, 5, logger)
	require.NoError(t, err)

	info := s.embeddingInfo(context.Background())

	assert.Equal(t, "none", info.Model)
	assert.Equal(t, "unavailable", info.Status)
	assert.True(t, info.IsFallbackActive)
	assert.Equal(t, "none", info.SemanticQuality)
}

func TestServeRejectsUnknownTransport(t *testing.T) {
	s, _ := testServer(t, &fakeSearcher{}, &fakeStore{})

	err := s.Serve(context.Background(), "sse")

	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}
