package meta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuthorTitleYear(t *testing.T) {
	p := NewParser(nil)

	parsed := p.Parse("Michael Welker - In God's Image (2021).epub")

	assert.Equal(t, "Michael Welker", parsed.Author)
	assert.Equal(t, "In God's Image", parsed.Title)
	require.NotNil(t, parsed.Year)
	assert.Equal(t, 2021, *parsed.Year)
	assert.InDelta(t, 0.9, parsed.Confidence, 0.001)
}

func TestParseUnderscoreFormat(t *testing.T) {
	p := NewParser(nil)

	parsed := p.Parse("Moltmann_Theologie der Hoffnung_1964.pdf")

	assert.Equal(t, "Jürgen Moltmann", parsed.Author)
	assert.Equal(t, "Theologie der Hoffnung", parsed.Title)
	require.NotNil(t, parsed.Year)
	assert.Equal(t, 1964, *parsed.Year)
	assert.InDelta(t, 0.85, parsed.Confidence, 0.001)
}

func TestParseDictionarySeries(t *testing.T) {
	p := NewParser(nil)

	tests := []struct {
		filename string
		series   string
		volume   int
	}{
		{"TDNT_Vol1.pdf", "TDNT", 1},
		{"TRE_Bd04.pdf", "TRE", 4},
		{"RGG 3.pdf", "RGG", 3},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			parsed := p.Parse(tt.filename)

			assert.Equal(t, Dictionary, parsed.DocType)
			assert.Equal(t, tt.series, parsed.Series)
			require.NotNil(t, parsed.Volume)
			assert.Equal(t, tt.volume, *parsed.Volume)
			assert.Equal(t, "Various", parsed.Author)
			assert.InDelta(t, 0.95, parsed.Confidence, 0.001)

			// Dictionary preset applies
			assert.Equal(t, 1500, parsed.ChunkSize)
			assert.Equal(t, 300, parsed.ChunkOverlap)
		})
	}
}

func TestParseTitleAuthor(t *testing.T) {
	p := NewParser(nil)

	parsed := p.Parse("Church Dogmatics - Karl Barth.pdf")

	assert.Equal(t, "Karl Barth", parsed.Author)
	assert.Equal(t, "Church Dogmatics", parsed.Title)
	assert.InDelta(t, 0.7, parsed.Confidence, 0.001)
	assert.Equal(t, Dogmatics, parsed.DocType)
}

func TestParseFallback(t *testing.T) {
	p := NewParser(nil)

	parsed := p.Parse("random_document_about_exegesis 1987.txt")

	assert.Equal(t, "Unknown", parsed.Author)
	assert.Equal(t, "random document about exegesis 1987", parsed.Title)
	require.NotNil(t, parsed.Year)
	assert.Equal(t, 1987, *parsed.Year)
	assert.Equal(t, Commentary, parsed.DocType)
	assert.InDelta(t, 0.3, parsed.Confidence, 0.001)
}

func TestNormalizeAuthorKnownNames(t *testing.T) {
	assert.Equal(t, "Karl Barth", normalizeAuthor("barth"))
	assert.Equal(t, "Eberhard Jüngel", normalizeAuthor("E. Jungel"))
	assert.Equal(t, "Unknown Writer", normalizeAuthor("unknown writer"))
}

func TestDetectDocType(t *testing.T) {
	tests := []struct {
		path  string
		title string
		want  DocType
	}{
		{"/books/wörterbuch/band1.pdf", "", Dictionary},
		{"/books/römerbrief.pdf", "Kommentar zum Römerbrief", Commentary},
		{"/books/kant_kritik.pdf", "", Philosophy},
		{"/books/kd_I_1.pdf", "Die Lehre vom Wort Gottes", Dogmatics},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectDocType(tt.path, tt.title), tt.path)
	}
}

func TestDetectLanguages(t *testing.T) {
	assert.Equal(t, []string{"de"}, detectLanguages("/scans/deutsch/kd.pdf"))
	assert.Equal(t, []string{"de", "ko"}, detectLanguages("/scans/german_한국어_mix.pdf"))
	assert.Equal(t, []string{"en"}, detectLanguages("/scans/unmarked.pdf"))
}

func TestPresetFor(t *testing.T) {
	assert.Equal(t, Preset{2000, 400}, PresetFor(Dogmatics))
	assert.Equal(t, Preset{1500, 300}, PresetFor(Dictionary))
	assert.Equal(t, Preset{1000, 150}, PresetFor(Commentary))
	// Philosophy has no dedicated preset and borrows the general one
	assert.Equal(t, Preset{1000, 150}, PresetFor(Philosophy))
}

func TestApplySidecar(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "KD_II_2.pdf")

	t.Run("missing sidecar leaves metadata untouched", func(t *testing.T) {
		parsed := NewParsed()
		used, err := ApplySidecar(doc, parsed)
		require.NoError(t, err)
		assert.Empty(t, used)
		assert.Equal(t, "Unknown", parsed.Author)
	})

	t.Run("sidecar overrides only named fields", func(t *testing.T) {
		sidecar := filepath.Join(dir, "KD_II_2.meta.json")
		require.NoError(t, os.WriteFile(sidecar,
			[]byte(`{"author": "Karl Barth", "doc_type": "dogmatics", "page_offset": 9}`), 0o644))

		parsed := NewParsed()
		parsed.Title = "vorhandener Titel"

		used, err := ApplySidecar(doc, parsed)
		require.NoError(t, err)
		assert.Equal(t, sidecar, used)
		assert.Equal(t, "Karl Barth", parsed.Author)
		assert.Equal(t, Dogmatics, parsed.DocType)
		assert.Equal(t, 9, parsed.PageOffset)
		// Unnamed field retains its parsed value
		assert.Equal(t, "vorhandener Titel", parsed.Title)
	})

	t.Run("precedence prefers meta.json over pdf.json", func(t *testing.T) {
		require.NoError(t, os.WriteFile(doc+".json",
			[]byte(`{"author": "falsch"}`), 0o644))

		parsed := NewParsed()
		used, err := ApplySidecar(doc, parsed)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "KD_II_2.meta.json"), used)
		assert.Equal(t, "Karl Barth", parsed.Author)
	})

	t.Run("malformed sidecar is an error", func(t *testing.T) {
		broken := filepath.Join(dir, "other.pdf")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.meta.json"),
			[]byte(`{invalid`), 0o644))

		parsed := NewParsed()
		_, err := ApplySidecar(broken, parsed)
		require.Error(t, err)
	})
}

func TestApplyOverridesTakeFinalPrecedence(t *testing.T) {
	parsed := NewParsed()
	parsed.Author = "Karl Barth"
	parsed.ChunkSize = 2000

	ApplyOverrides(parsed, map[string]any{
		"chunk_size": 1200,
		"tags":       []string{"ethik"},
		"unknown":    "ignored",
	})

	assert.Equal(t, 1200, parsed.ChunkSize)
	assert.Equal(t, []string{"ethik"}, parsed.Tags)
	assert.Equal(t, "Karl Barth", parsed.Author)
}
