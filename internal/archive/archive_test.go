package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerr "github.com/theolab/theoindex/internal/errors"
	"github.com/theolab/theoindex/internal/meta"
)

func TestChunkConfig(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantType meta.DocType
		wantSize int
	}{
		{
			name:     "folder keyword routes to dictionary",
			path:     "/library/Wörterbuch/band3.pdf",
			wantType: meta.Dictionary,
			wantSize: 400,
		},
		{
			name:     "korean folder keyword",
			path:     "/library/사전모음/nidotte.pdf",
			wantType: meta.Dictionary,
			wantSize: 400,
		},
		{
			name:     "strong filename keyword",
			path:     "/library/scans/TDNT_Vol3.pdf",
			wantType: meta.Dictionary,
			wantSize: 400,
		},
		{
			name:     "weak filename keyword does not route",
			path:     "/library/scans/my_lex_notes.pdf",
			wantType: meta.Dogmatics,
			wantSize: 1200,
		},
		{
			name:     "default is dogmatics",
			path:     "/library/scans/KD_II_2.pdf",
			wantType: meta.Dogmatics,
			wantSize: 1200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route := ChunkConfig(tt.path)
			assert.Equal(t, tt.wantType, route.DocType)
			assert.Equal(t, tt.wantSize, route.ChunkSize)
		})
	}
}

func TestFolderBeatsFilename(t *testing.T) {
	// A dogmatics-looking filename inside a dictionary folder still routes
	// as dictionary.
	route := ChunkConfig("/library/lexicon/KD_II_2.pdf")

	assert.Equal(t, meta.Dictionary, route.DocType)
}

func TestStoreWriteRead(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	doc := &Document{
		Source: "TRE_Bd4.pdf",
		Metadata: &meta.Parsed{
			Author: "Various", Title: "TRE Volume 4",
			DocType: meta.Dictionary, Series: "TRE",
		},
		TotalChunks: 2,
		Chunks: []ChunkRecord{
			{Content: "GNADE. Erster Abschnitt.", Metadata: meta.ChunkMeta{Source: "TRE", Lemma: "GNADE"}},
			{Content: "Fortsetzung des Artikels.", Metadata: meta.ChunkMeta{Source: "TRE", Lemma: "GNADE"}},
		},
	}

	require.NoError(t, store.Write("TRE_Bd4", doc))
	assert.True(t, store.Has("TRE_Bd4"))

	got, err := store.Read("TRE_Bd4")
	require.NoError(t, err)
	assert.Equal(t, "TRE_Bd4.pdf", got.Source)
	assert.Equal(t, 2, got.TotalChunks)
	require.Len(t, got.Chunks, 2)
	assert.Equal(t, "GNADE", got.Chunks[0].Metadata.Lemma)
	assert.Equal(t, meta.Dictionary, got.Metadata.DocType)
}

func TestReadFileLegacyList(t *testing.T) {
	// Early exports wrote a bare chunk array with "text" fields.
	dir := t.TempDir()
	path := filepath.Join(dir, "EKL_Bd1.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "EKL_1_0001", "text": "ABENDMAHL. Artikelanfang.", "metadata": {"source": "EKL"}},
		{"id": "EKL_1_0002", "text": "Fortsetzung.", "metadata": {"source": "EKL"}}
	]`), 0o644))

	doc, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "EKL_Bd1", doc.Source)
	assert.Equal(t, 2, doc.TotalChunks)
	assert.Equal(t, "ABENDMAHL. Artikelanfang.", doc.Chunks[0].Content)
}

func TestReadFileCorrupt(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"truncated object", `{"source": "x", "chunks": [`},
		{"empty file", ``},
		{"scalar layout", `42`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := ReadFile(path)
			require.Error(t, err)
			assert.Equal(t, pipeerr.ErrCodeCorruptArchive, pipeerr.GetCode(err))
		})
	}
}

func TestFilesSkipsBookkeeping(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	for _, name := range []string{
		"KD_II_2.json", "lemma_index.json", "lemma_index_meta.json",
		"KD_II_2.meta.json", "KD_II_2.mapping.json", "notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}

	files, err := store.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(dir, "KD_II_2.json"), files[0])
}

func TestScan(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write("KD", &Document{
		Source: "KD.pdf",
		Chunks: []ChunkRecord{
			{Content: "Die Gnade Gottes und die Erwählung.", Metadata: meta.ChunkMeta{Source: "KD"}},
			{Content: "Von der Schöpfung.", Metadata: meta.ChunkMeta{Source: "KD"}},
			{Content: "Gnade und Glaube zusammen betrachtet.", Metadata: meta.ChunkMeta{Source: "KD"}},
		},
	}))

	t.Run("scores by matched term fraction", func(t *testing.T) {
		matches, err := store.Scan(context.Background(), []string{"Gnade", "Glaube"}, 10)
		require.NoError(t, err)
		require.Len(t, matches, 2)

		// Both terms beat one term
		assert.Equal(t, "Gnade und Glaube zusammen betrachtet.", matches[0].Content)
		assert.InDelta(t, 1.0, matches[0].Score, 0.001)
		assert.InDelta(t, 0.5, matches[1].Score, 0.001)
	})

	t.Run("case insensitive", func(t *testing.T) {
		matches, err := store.Scan(context.Background(), []string{"schöpfung"}, 10)
		require.NoError(t, err)
		require.Len(t, matches, 1)
	})

	t.Run("limit trims results", func(t *testing.T) {
		matches, err := store.Scan(context.Background(), []string{"und"}, 1)
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	t.Run("no terms no matches", func(t *testing.T) {
		matches, err := store.Scan(context.Background(), nil, 10)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestRelocateSidecar(t *testing.T) {
	inbox := t.TempDir()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	sidecar := filepath.Join(inbox, "KD_II_2.meta.json")
	require.NoError(t, os.WriteFile(sidecar, []byte(`{"author": "Karl Barth"}`), 0o644))

	require.NoError(t, store.RelocateSidecar(sidecar, "KD_II_2"))

	assert.NoFileExists(t, sidecar)
	assert.FileExists(t, filepath.Join(store.Dir(), "KD_II_2.meta.json"))

	// No sidecar is a no-op
	require.NoError(t, store.RelocateSidecar("", "other"))
}
