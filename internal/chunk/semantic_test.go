package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theolab/theoindex/internal/meta"
)

func TestSemanticDictionaryEntries(t *testing.T) {
	// Given two Greek dictionary entries
	text := "ἀγάπη (agape) love, the divine love of God toward humanity as shown in the sending of the Son.\n" +
		"The term appears throughout the epistles.\n" +
		"λόγος (logos) word, reason, the eternal Word that was in the beginning with God and was God."

	s := NewSemantic(approxTokenizer(), nil)

	// When chunked as a dictionary
	chunks := s.Chunk(text, meta.Dictionary, 400, meta.ChunkMeta{Source: "TDNT"})

	// Then one entry chunk per headword, carrying its lemma
	require.Len(t, chunks, 2)
	assert.Equal(t, TypeEntry, chunks[0].Type)
	assert.Equal(t, "ἀγάπη", chunks[0].Metadata.Lemma)
	assert.Contains(t, chunks[0].Text, "divine love")
	assert.Contains(t, chunks[0].Text, "epistles")
	assert.Equal(t, "λόγος", chunks[1].Metadata.Lemma)
	assert.Equal(t, "TDNT", chunks[1].Metadata.Source)
}

func TestSemanticDictionarySkipsShortEntries(t *testing.T) {
	text := "ἀγάπη love.\n" +
		"λόγος (logos) word, reason, the eternal Word that was in the beginning with God and was God."

	s := NewSemantic(approxTokenizer(), nil)
	chunks := s.Chunk(text, meta.Dictionary, 400, meta.ChunkMeta{})

	require.Len(t, chunks, 1)
	assert.Equal(t, "λόγος", chunks[0].Metadata.Lemma)
}

func TestSemanticDictionaryOversizeEntrySplitsByParagraph(t *testing.T) {
	// Given one entry far above four times the budget
	paras := []string{
		strings.Repeat("erster Absatz ", 12),
		strings.Repeat("zweiter Absatz ", 12),
		strings.Repeat("dritter Absatz ", 12),
	}
	text := "GNADE. " + paras[0] + "\n\n" + paras[1] + "\n\n" + paras[2]

	s := NewSemantic(approxTokenizer(), nil)
	chunks := s.Chunk(text, meta.Dictionary, 30, meta.ChunkMeta{})

	// Then the entry is split but every piece keeps the headword
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.Equal(t, TypeEntry, c.Type)
		assert.Equal(t, "GNADE", c.Metadata.Lemma)
	}
}

func TestSemanticDictionaryFallsBackToParagraphs(t *testing.T) {
	// Given prose with no detectable headwords
	text := strings.Repeat("running body text without any headword structure at all ", 4) + "\n\n" +
		strings.Repeat("a second paragraph of the same plain running prose here ", 4)

	s := NewSemantic(approxTokenizer(), nil)
	chunks := s.Chunk(text, meta.Dictionary, 400, meta.ChunkMeta{})

	// Then the generic paragraph strategy takes over
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, TypeParagraph, c.Type)
		assert.Empty(t, c.Metadata.Lemma)
	}
}

func TestSemanticCommentaryVerses(t *testing.T) {
	text := "1:1 In the beginning God created the heavens and the earth, the opening statement of all scripture.\n" +
		"2:4 These are the generations of the heavens and of the earth when they were created in that day."

	s := NewSemantic(approxTokenizer(), nil)
	chunks := s.Chunk(text, meta.Commentary, 400, meta.ChunkMeta{})

	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, TypeVerse, c.Type)
		assert.Equal(t, string(TypeVerse), c.Metadata.ChunkType)
	}
	assert.Contains(t, chunks[0].Text, "opening statement")
	assert.Contains(t, chunks[1].Text, "generations")
}

func TestSemanticDogmaticsSections(t *testing.T) {
	text := "# Die Lehre von Gott\n\n" +
		strings.Repeat("Gottes Sein ist kein statisches Wesen sondern lebendige Tat. ", 3) + "\n\n" +
		"## Die Dreieinigkeit\n\n" +
		strings.Repeat("Die Trinitätslehre bekennt den einen Gott in drei Weisen. ", 3)

	s := NewSemantic(approxTokenizer(), nil)
	chunks := s.Chunk(text, meta.Dogmatics, 400, meta.ChunkMeta{})

	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, TypeSection, c.Type)
	}
	assert.Contains(t, chunks[0].Text, "lebendige Tat")
	assert.Contains(t, chunks[1].Text, "Trinitätslehre")
}

func TestSemanticDogmaticsMergesShortParagraphs(t *testing.T) {
	// Given several short paragraphs well under the budget
	p := "Ein kurzer Absatz über die Gnade und ihre Bedeutung im Glauben."
	text := p + "\n\n" + p + "\n\n" + p

	s := NewSemantic(approxTokenizer(), nil)
	chunks := s.Chunk(text, meta.Dogmatics, 400, meta.ChunkMeta{})

	// Then they merge into a single chunk
	require.Len(t, chunks, 1)
	assert.Equal(t, TypeParagraph, chunks[0].Type)
	assert.Equal(t, 2, strings.Count(chunks[0].Text, "\n\n"))
}

func TestSemanticEmptyText(t *testing.T) {
	s := NewSemantic(approxTokenizer(), nil)
	assert.Nil(t, s.Chunk("  \n ", meta.Dogmatics, 400, meta.ChunkMeta{}))
}

func TestSplitByHeadingKeepsLeadingContent(t *testing.T) {
	text := "Vorwort ohne Überschrift mit genügend eigenem Text am Anfang.\n\n# Erstes Kapitel\n\nInhalt des ersten Kapitels mit ausreichend vielen Worten darin."

	sections := splitByHeading(text)

	require.Len(t, sections, 2)
	assert.Empty(t, sections[0].heading)
	assert.Contains(t, sections[0].text, "Vorwort")
	assert.Equal(t, "Erstes Kapitel", sections[1].heading)
}

func TestIDFormat(t *testing.T) {
	vol := 4

	t.Run("full form", func(t *testing.T) {
		assert.Equal(t, "TRE_4_GNADE_0003", ID("TRE", &vol, "GNADE", 3))
	})

	t.Run("without volume and lemma", func(t *testing.T) {
		assert.Equal(t, "KD_0000", ID("KD", nil, "", 0))
	})

	t.Run("headword truncated by runes", func(t *testing.T) {
		long := strings.Repeat("ἀγάπη", 6)
		id := ID("TDNT", nil, long, 12)
		assert.Equal(t, "TDNT_"+strings.Repeat("ἀγάπη", 4)+"_0012", id)
	})
}

func TestFinalizeExplicitHeadwords(t *testing.T) {
	// Given a preface chunk, then entries with a continuation chunk
	vol := 4
	chunks := []Chunk{
		{Text: "Vorwort"},
		{Text: "GNADE. Der Begriff.", Metadata: meta.ChunkMeta{Lemma: "GNADE"}},
		{Text: "Fortsetzung des Artikels."},
		{Text: "GLAUBE. Ein neuer Artikel.", Metadata: meta.ChunkMeta{Lemma: "GLAUBE"}},
	}

	// When finalized
	out := Finalize(chunks, "TRE", &vol)

	// Then continuations inherit the open headword with gap-free sequencing
	require.Len(t, out, 4)
	assert.Empty(t, out[0].Metadata.Lemma)
	assert.Zero(t, out[0].Metadata.LemmaChunkIndex)

	assert.Equal(t, "GNADE", out[1].Metadata.Lemma)
	assert.Equal(t, 1, out[1].Metadata.LemmaChunkIndex)
	assert.Equal(t, 2, out[1].Metadata.LemmaTotalChunks)

	assert.Equal(t, "GNADE", out[2].Metadata.Lemma)
	assert.Equal(t, 2, out[2].Metadata.LemmaChunkIndex)
	assert.Equal(t, 2, out[2].Metadata.LemmaTotalChunks)

	assert.Equal(t, "GLAUBE", out[3].Metadata.Lemma)
	assert.Equal(t, 1, out[3].Metadata.LemmaChunkIndex)
	assert.Equal(t, 1, out[3].Metadata.LemmaTotalChunks)

	assert.Equal(t, "TRE_4_0000", out[0].ID)
	assert.Equal(t, "TRE_4_GNADE_0001", out[1].ID)
	assert.Equal(t, "TRE_4_GNADE_0002", out[2].ID)
	assert.Equal(t, "TRE_4_GLAUBE_0003", out[3].ID)
}

func TestFinalizeDetectsHeadwordsFromText(t *testing.T) {
	// Given chunks without structure-derived headwords
	chunks := []Chunk{
		{Text: "GNADE. Die Gnade Gottes ist frei."},
		{Text: "weiterer Text zum selben Artikel ohne eigenes Stichwort"},
		{Text: "GLAUBE. Der Glaube kommt aus der Predigt."},
	}

	out := Finalize(chunks, "RGG", nil)

	assert.Equal(t, "GNADE", out[0].Metadata.Lemma)
	assert.Equal(t, "GNADE", out[1].Metadata.Lemma)
	assert.Equal(t, 2, out[1].Metadata.LemmaChunkIndex)
	assert.Equal(t, "GLAUBE", out[2].Metadata.Lemma)
	assert.Equal(t, "RGG_GNADE_0000", out[0].ID)
	assert.Equal(t, "RGG_GLAUBE_0002", out[2].ID)
}

func TestFinalizeDeterministic(t *testing.T) {
	mk := func() []Chunk {
		return []Chunk{
			{Text: "GNADE. Die Gnade Gottes ist frei und ungeschuldet."},
			{Text: "Fortsetzung über die freie Gnade im Neuen Testament."},
		}
	}

	a := Finalize(mk(), "TRE", nil)
	b := Finalize(mk(), "TRE", nil)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Metadata.LemmaChunkIndex, b[i].Metadata.LemmaChunkIndex)
	}
}
