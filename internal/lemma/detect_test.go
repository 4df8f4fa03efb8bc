package lemma

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "all caps headword",
			text: "GNADE. Die Gnade Gottes ist der Grundbegriff der reformatorischen Theologie.",
			want: "GNADE",
		},
		{
			name: "all caps compound",
			text: "ALPHA UND OMEGA, Bezeichnung Christi in der Johannesoffenbarung.",
			want: "ALPHA UND OMEGA",
		},
		{
			name: "mixed case german compound",
			text: "Alkohol und Alkoholismus. Die Kirchengeschichte kennt unterschiedliche Haltungen.",
			want: "Alkohol und Alkoholismus",
		},
		{
			name: "greek headword",
			text: "ἀγάπη. Das Wort bezeichnet im Neuen Testament die göttliche Liebe.",
			want: "ἀγάπη",
		},
		{
			name: "hebrew headword",
			text: "חסד הוא מושג מרכזי, die Bundestreue Gottes.",
			want: "חסד",
		},
		{
			name: "body text is not a headword",
			text: "die fortlaufende Erörterung des vorigen Abschnitts setzt hier ein",
			want: "",
		},
		{
			name: "single letter rejected",
			text: "A. Einleitung in das Thema.",
			want: "",
		},
		{
			name: "overlong run rejected",
			text: strings.Repeat("GNADE ", 12) + ". Text.",
			want: "",
		},
		{
			name: "empty text",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.text))
		})
	}
}

func TestDetectInspectsPrefixOnly(t *testing.T) {
	// A headword pattern far into the chunk must not count.
	text := strings.Repeat("fortlaufender text ", 30) + "\nGNADE. Neuer Artikel."

	assert.Equal(t, "", Detect(text))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "gnade", Normalize("  GNADE "))
	assert.Equal(t, "ἀγάπη", Normalize("ἀγάπη"))
}

func TestAssignLemmas(t *testing.T) {
	// Given chunks where headwords open entries that span several chunks
	texts := []string{
		"Vorwort des Herausgebers ohne Stichwort.",
		"GNADE. Erster Teil des Artikels über die Gnade.",
		"die Fortsetzung des Artikels ohne neues Stichwort.",
		"nochmals Fortsetzung desselben Artikels.",
		"GLAUBE. Ein neuer Artikel beginnt hier.",
		"und seine Fortsetzung.",
	}

	got := AssignLemmas(texts)

	require.Len(t, got, 6)

	// Pre-headword chunk carries no lemma
	assert.Equal(t, Assignment{}, got[0])

	// First entry spans chunks 1-3 with gap-free 1-based positions
	assert.Equal(t, Assignment{Lemma: "GNADE", Index: 1, Total: 3}, got[1])
	assert.Equal(t, Assignment{Lemma: "GNADE", Index: 2, Total: 3}, got[2])
	assert.Equal(t, Assignment{Lemma: "GNADE", Index: 3, Total: 3}, got[3])

	// Second entry restarts the numbering
	assert.Equal(t, Assignment{Lemma: "GLAUBE", Index: 1, Total: 2}, got[4])
	assert.Equal(t, Assignment{Lemma: "GLAUBE", Index: 2, Total: 2}, got[5])
}

func TestAssignLemmasSharedTotals(t *testing.T) {
	// Every chunk of the same lemma must report the same total.
	texts := []string{
		"GNADE. Artikelanfang.",
		"Fortsetzung eins.",
		"Fortsetzung zwei.",
	}

	got := AssignLemmas(texts)

	for i, a := range got {
		assert.Equal(t, "GNADE", a.Lemma, "chunk %d", i)
		assert.Equal(t, 3, a.Total, "chunk %d", i)
		assert.Equal(t, i+1, a.Index, "chunk %d", i)
	}
}

func TestAssignLemmasEmpty(t *testing.T) {
	assert.Empty(t, AssignLemmas(nil))
}
