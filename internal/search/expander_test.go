package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandKnownConcept(t *testing.T) {
	// Given a query naming a known concept in English
	x := NewExpander()

	// When expanding
	exp := x.Expand("justification")

	// Then parallel terms from every language are present, query first
	require.NotEmpty(t, exp.Terms)
	assert.Equal(t, "justification", exp.Terms[0])
	assert.Contains(t, exp.Terms, "칭의")
	assert.Contains(t, exp.Terms, "Rechtfertigung")
	assert.Equal(t, []string{"칭의"}, exp.Concepts)
}

func TestExpandGreekTerms(t *testing.T) {
	exp := NewExpander().Expand("agape")

	assert.Contains(t, exp.Terms, "ἀγάπη")
	assert.Contains(t, exp.Terms, "Liebe")
}

func TestExpandUnknownWordPassesThrough(t *testing.T) {
	// Given a query with no table entry
	exp := NewExpander().Expand("Schleiermacher hermeneutics")

	// Then both words survive unchanged and nothing else is added
	assert.Equal(t, []string{"Schleiermacher hermeneutics", "Schleiermacher", "hermeneutics"}, exp.Terms)
	assert.Empty(t, exp.Concepts)
}

func TestExpandMixedQuery(t *testing.T) {
	// Given one known and one unknown word
	exp := NewExpander().Expand("Barth Kirchenbegriff")

	// Then the known word expands and the unknown passes through
	assert.Contains(t, exp.Terms, "Karl Barth")
	assert.Contains(t, exp.Terms, "Kirchenbegriff")
	assert.Equal(t, []string{"바르트"}, exp.Concepts)
}

func TestExpandMultiWordConcept(t *testing.T) {
	// A multi-word concept name is looked up whole, not word by word
	exp := NewExpander().Expand("Kingdom of God")

	assert.Contains(t, exp.Terms, "하나님 나라")
	assert.Contains(t, exp.Terms, "Reich Gottes")
	assert.NotContains(t, exp.Terms, "of")
}

func TestExpandDeduplicatesCaseInsensitively(t *testing.T) {
	// "Barth" appears in both en and de term lists
	exp := NewExpander().Expand("barth")

	count := 0
	for _, term := range exp.Terms {
		if term == "Barth" || term == "barth" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExpandEmptyQuery(t *testing.T) {
	exp := NewExpander().Expand("   ")

	assert.Empty(t, exp.Terms)
	assert.Empty(t, exp.Concepts)
}

func TestVectorTermsCapped(t *testing.T) {
	terms := NewExpander().VectorTerms("justification", 3)

	assert.Len(t, terms, 3)
	assert.Equal(t, "justification", terms[0])
}
