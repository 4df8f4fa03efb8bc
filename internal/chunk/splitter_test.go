package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theolab/theoindex/internal/meta"
)

// approxTokenizer counts runes/4 deterministically, independent of whether
// the BPE encoding can be loaded in the test environment.
func approxTokenizer() *Tokenizer { return &Tokenizer{} }

func TestTokenizerApproximateCount(t *testing.T) {
	tok := approxTokenizer()
	assert.Equal(t, 0, tok.Count(""))
	assert.Equal(t, 1, tok.Count("ab"))
	assert.Equal(t, 2, tok.Count("abcdefgh"))
	assert.False(t, tok.Exact())
}

func TestSplitParagraphs(t *testing.T) {
	// Given three paragraphs each just under the token budget
	p1 := strings.Repeat("a", 200)
	p2 := strings.Repeat("b", 200)
	p3 := strings.Repeat("c", 200)
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	s := NewSplitter(approxTokenizer(), nil)

	// When split with a budget that fits one paragraph but not two
	chunks := s.Split(text, 60, 10, meta.ChunkMeta{Source: "KD"})

	// Then each paragraph becomes its own chunk with an exact offset
	require.Len(t, chunks, 3)
	assert.Equal(t, p1, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartIndex)
	assert.Equal(t, p2, chunks[1].Text)
	assert.Equal(t, 202, chunks[1].StartIndex)
	assert.Equal(t, p3, chunks[2].Text)
	assert.Equal(t, 404, chunks[2].StartIndex)

	for _, c := range chunks {
		assert.LessOrEqual(t, c.TokenCount, 60)
		assert.Equal(t, "KD", c.Metadata.Source)
		assert.Equal(t, TypeParagraph, c.Type)
	}
}

func TestSplitSentenceOverlap(t *testing.T) {
	// Given one long paragraph of ten equal sentences
	sentence := strings.Repeat("abcd ", 23) + "end. "
	require.Len(t, sentence, 120)
	text := strings.TrimSpace(strings.Repeat(sentence, 10))

	s := NewSplitter(approxTokenizer(), nil)

	// When split with an overlap window
	chunks := s.Split(text, 100, 30, meta.ChunkMeta{})

	// Then consecutive chunks overlap inside the source text
	require.Len(t, chunks, 5)
	for i := 1; i < len(chunks); i++ {
		prevEnd := chunks[i-1].StartIndex + len(chunks[i-1].Text)
		assert.Greater(t, chunks[i].StartIndex, chunks[i-1].StartIndex)
		assert.Less(t, chunks[i].StartIndex, prevEnd, "chunk %d should overlap its predecessor", i)
	}
	for _, c := range chunks {
		assert.LessOrEqual(t, c.TokenCount, 100)
	}
}

func TestSplitDropsNoiseFragments(t *testing.T) {
	// Given a stray page number between two paragraphs
	text := strings.Repeat("a", 200) + "\n\n" + "143" + "\n\n" + strings.Repeat("c", 200)

	s := NewSplitter(approxTokenizer(), nil)
	chunks := s.Split(text, 50, 5, meta.ChunkMeta{})

	// Then the page number fragment is filtered out
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.GreaterOrEqual(t, len(c.Text), MinChunkLength)
		assert.NotEqual(t, "143", c.Text)
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(approxTokenizer(), nil)
	assert.Nil(t, s.Split("   \n ", 100, 10, meta.ChunkMeta{}))
}

func TestLocate(t *testing.T) {
	t.Run("forward search from previous offset", func(t *testing.T) {
		assert.Equal(t, 8, locate("foo bar foo", "foo", 4))
	})

	t.Run("global search when forward fails", func(t *testing.T) {
		assert.Equal(t, 0, locate("foo bar foo", "foo", 20))
	})

	t.Run("whitespace-normalized proportional fallback", func(t *testing.T) {
		// "hello   world" never matches exactly, only after normalization
		assert.Equal(t, 7, locate("xx yy\n\nhello   world", "hello world", 0))
	})

	t.Run("no match at all", func(t *testing.T) {
		assert.Equal(t, 0, locate("abc", "zzz", 0))
	})
}
