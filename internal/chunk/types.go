// Package chunk splits extracted document text into bounded, embeddable
// chunks. Two strategies exist: a token-aware recursive splitter for running
// prose, and a semantic splitter that follows document structure (dictionary
// entries, verse references, section headings) per document type.
package chunk

import "github.com/theolab/theoindex/internal/meta"

const (
	// MinChunkLength filters noise fragments (stray headers, page numbers)
	// from the token splitter's output, in characters.
	MinChunkLength = 100

	// minEntryLength is the semantic splitter's floor for dictionary entries
	// and paragraphs.
	minEntryLength = 50

	// charsPerToken is the character budget proxy used where exact token
	// counting is not worth the cost.
	charsPerToken = 4

	// oversizeFactor marks a semantic unit as too large to keep whole.
	oversizeFactor = 4
)

// Type classifies how a chunk was carved out of its document.
type Type string

const (
	TypeParagraph Type = "paragraph"
	TypeSection   Type = "section"
	TypeEntry     Type = "entry"
	TypeVerse     Type = "verse"
)

// Chunk is a bounded span of text destined for embedding. Chunks are
// immutable once built; re-indexing a source replaces its whole chunk set.
type Chunk struct {
	ID         string
	Text       string
	TokenCount int
	Type       Type
	// StartIndex is the best-effort offset of Text within the source text;
	// 0 when no locating strategy succeeded.
	StartIndex int
	Metadata   meta.ChunkMeta
}
