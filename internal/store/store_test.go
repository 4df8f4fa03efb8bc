package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theolab/theoindex/internal/chunk"
	pipeerr "github.com/theolab/theoindex/internal/errors"
	"github.com/theolab/theoindex/internal/meta"
)

const testDims = 4

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(Config{Dir: dir, Dimensions: testDims},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func testChunk(id, source, text string) chunk.Chunk {
	return chunk.Chunk{
		ID:   id,
		Text: text,
		Metadata: meta.ChunkMeta{
			Source:   source,
			Filename: source + ".pdf",
			DocType:  meta.Dictionary,
			Lemma:    "gnade",
		},
	}
}

// unitVec points along one axis so cosine similarity between distinct axes
// is exactly zero.
func unitVec(axis int) []float32 {
	v := make([]float32, testDims)
	v[axis%testDims] = 1
	return v
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var perr *pipeerr.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, code, perr.Code)
}

func TestUpsertAndQuery(t *testing.T) {
	// Given three chunks embedded along distinct axes
	s, _ := newTestStore(t)
	ctx := context.Background()
	chunks := []chunk.Chunk{
		testChunk("TRE_4_GNADE_0000", "TRE", "Gnade ist die freie Zuwendung Gottes."),
		testChunk("TRE_4_GLAUBE_0001", "TRE", "Glaube als Vertrauen auf die Verheissung."),
		testChunk("KD_0000", "KD", "Die Lehre vom Wort Gottes."),
	}
	vectors := [][]float32{unitVec(0), unitVec(1), unitVec(2)}
	require.NoError(t, s.Upsert(ctx, chunks, vectors))

	// When querying along the first axis
	results, err := s.Query(ctx, unitVec(0), 2)

	// Then the matching chunk leads with its full payload restored
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "TRE_4_GNADE_0000", results[0].ID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
	assert.Equal(t, "Gnade ist die freie Zuwendung Gottes.", results[0].Text)
	assert.Equal(t, "TRE", results[0].Metadata.Source)
	assert.Equal(t, "TRE.pdf", results[0].Metadata.Filename)
	assert.Equal(t, "gnade", results[0].Metadata.Lemma)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestUpsertReplacesExistingID(t *testing.T) {
	// Given a stored chunk
	s, _ := newTestStore(t)
	ctx := context.Background()
	first := testChunk("TRE_4_GNADE_0000", "TRE", "old text")
	require.NoError(t, s.Upsert(ctx, []chunk.Chunk{first}, [][]float32{unitVec(0)}))

	// When the same ID is upserted with new text and a new vector
	second := testChunk("TRE_4_GNADE_0000", "TRE", "revised text")
	require.NoError(t, s.Upsert(ctx, []chunk.Chunk{second}, [][]float32{unitVec(1)}))

	// Then the store still holds one chunk carrying the new payload
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := s.Query(ctx, unitVec(1), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "revised text", results[0].Text)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestUpsertCountMismatch(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Upsert(context.Background(),
		[]chunk.Chunk{testChunk("a", "TRE", "text")},
		[][]float32{unitVec(0), unitVec(1)})

	assertCode(t, err, pipeerr.ErrCodeInvalidInput)
}

func TestUpsertDimensionMismatch(t *testing.T) {
	// Given a vector narrower than the store expects
	s, _ := newTestStore(t)
	ctx := context.Background()

	// When upserting it
	err := s.Upsert(ctx,
		[]chunk.Chunk{testChunk("a", "TRE", "text")},
		[][]float32{{1, 0}})

	// Then the upsert fails and nothing is stored
	assertCode(t, err, pipeerr.ErrCodeDimensionMismatch)
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDeleteBySource(t *testing.T) {
	// Given chunks from two sources
	s, _ := newTestStore(t)
	ctx := context.Background()
	chunks := []chunk.Chunk{
		testChunk("TRE_4_GNADE_0000", "TRE", "first"),
		testChunk("TRE_4_GLAUBE_0001", "TRE", "second"),
		testChunk("KD_0000", "KD", "third"),
	}
	require.NoError(t, s.Upsert(ctx, chunks, [][]float32{unitVec(0), unitVec(1), unitVec(2)}))

	// When one source is deleted
	removed, err := s.DeleteBySource(ctx, "TRE")

	// Then only the other source remains and its chunks stay searchable
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	sources, err := s.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"KD"}, sources)

	results, err := s.Query(ctx, unitVec(0), 3)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "KD", r.Metadata.Source)
	}
}

func TestDeleteBySourceUnknown(t *testing.T) {
	s, _ := newTestStore(t)

	removed, err := s.DeleteBySource(context.Background(), "nope")

	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestQueryDimensionMismatch(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Query(context.Background(), []float32{1, 0}, 5)

	assertCode(t, err, pipeerr.ErrCodeDimensionMismatch)
}

func TestQueryEmptyStore(t *testing.T) {
	s, _ := newTestStore(t)

	results, err := s.Query(context.Background(), unitVec(0), 5)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSourcesSorted(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	chunks := []chunk.Chunk{
		testChunk("z_0000", "ZwingliWerke", "a"),
		testChunk("KD_0000", "KD", "b"),
		testChunk("TRE_0000", "TRE", "c"),
	}
	require.NoError(t, s.Upsert(ctx, chunks, [][]float32{unitVec(0), unitVec(1), unitVec(2)}))

	sources, err := s.Sources(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"KD", "TRE", "ZwingliWerke"}, sources)
}

func TestPersistenceRoundtrip(t *testing.T) {
	// Given a store that was populated and closed
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	s, err := Open(Config{Dir: dir, Dimensions: testDims}, logger)
	require.NoError(t, err)
	chunks := []chunk.Chunk{
		testChunk("TRE_4_GNADE_0000", "TRE", "Gnade"),
		testChunk("KD_0000", "KD", "Wort Gottes"),
	}
	require.NoError(t, s.Upsert(ctx, chunks, [][]float32{unitVec(0), unitVec(1)}))
	require.NoError(t, s.Close())

	// When reopening from the same directory
	reopened, err := Open(Config{Dir: dir, Dimensions: testDims}, logger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	// Then counts and query results survive the restart
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := reopened.Query(ctx, unitVec(0), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "TRE_4_GNADE_0000", results[0].ID)
	assert.Equal(t, "Gnade", results[0].Text)
}

func TestOpenRejectsDimensionChange(t *testing.T) {
	// Given an index saved with one embedding width
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(Config{Dir: dir, Dimensions: testDims}, logger)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(context.Background(),
		[]chunk.Chunk{testChunk("a", "TRE", "text")}, [][]float32{unitVec(0)}))
	require.NoError(t, s.Close())

	// When reopening with a different width
	_, err = Open(Config{Dir: dir, Dimensions: testDims * 2}, logger)

	// Then the mismatch is reported instead of silently corrupting the index
	assertCode(t, err, pipeerr.ErrCodeDimensionMismatch)
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Close())

	err := s.Upsert(context.Background(),
		[]chunk.Chunk{testChunk("a", "TRE", "text")}, [][]float32{unitVec(0)})
	assertCode(t, err, pipeerr.ErrCodeStoreFailed)

	_, err = s.Query(context.Background(), unitVec(0), 1)
	assertCode(t, err, pipeerr.ErrCodeStoreFailed)

	// Closing twice is safe
	assert.NoError(t, s.Close())
}
