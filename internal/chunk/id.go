package chunk

import (
	"fmt"
	"strings"

	"github.com/theolab/theoindex/internal/lemma"
)

// maxIDHeadwordRunes bounds the headword segment of a chunk ID.
const maxIDHeadwordRunes = 20

// ID builds the deterministic chunk identifier. The same source, volume,
// headword, and sequence always produce the same ID, which is what makes
// re-index upserts replace instead of duplicate.
func ID(abbrev string, volume *int, headword string, seq int) string {
	var b strings.Builder
	b.WriteString(abbrev)
	if volume != nil {
		fmt.Fprintf(&b, "_%d", *volume)
	}
	if headword != "" {
		runes := []rune(headword)
		if len(runes) > maxIDHeadwordRunes {
			runes = runes[:maxIDHeadwordRunes]
		}
		fmt.Fprintf(&b, "_%s", string(runes))
	}
	fmt.Fprintf(&b, "_%04d", seq)
	return b.String()
}

// Finalize assigns lemma ownership, per-lemma sequencing, and deterministic
// IDs across the full chunk sequence of one source. Chunks carrying
// structure-derived headwords (dictionary entries) keep them; otherwise
// headwords are detected from the chunk texts.
func Finalize(chunks []Chunk, abbrev string, volume *int) []Chunk {
	owners := make([]string, len(chunks))
	explicit := false
	for i := range chunks {
		owners[i] = chunks[i].Metadata.Lemma
		if owners[i] != "" {
			explicit = true
		}
	}

	if explicit {
		// An entry's continuation chunks inherit the last opened headword;
		// chunks before the first entry stay unowned.
		last := ""
		for i := range owners {
			if owners[i] == "" {
				owners[i] = last
			} else {
				last = owners[i]
			}
		}
	} else {
		texts := make([]string, len(chunks))
		for i := range chunks {
			texts[i] = chunks[i].Text
		}
		for i, a := range lemma.AssignLemmas(texts) {
			owners[i] = a.Lemma
		}
	}

	totals := make(map[string]int)
	for _, owner := range owners {
		if owner != "" {
			totals[owner]++
		}
	}

	seen := make(map[string]int)
	for i := range chunks {
		owner := owners[i]
		md := &chunks[i].Metadata
		md.Lemma = owner
		if owner != "" {
			seen[owner]++
			md.LemmaChunkIndex = seen[owner]
			md.LemmaTotalChunks = totals[owner]
		} else {
			md.LemmaChunkIndex = 0
			md.LemmaTotalChunks = 0
		}
		chunks[i].ID = ID(abbrev, volume, owner, i)
	}
	return chunks
}
