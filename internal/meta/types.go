// Package meta owns the canonical document and chunk metadata structures and
// the filename parser that fills them. Every pipeline stage reads and writes
// these structs; there is no secondary metadata shape anywhere downstream.
package meta

import "time"

// DocType categorizes a source document and selects its chunking preset.
type DocType string

const (
	Dogmatics  DocType = "dogmatics"
	Dictionary DocType = "dictionary"
	Commentary DocType = "commentary"
	Philosophy DocType = "philosophy"
	General    DocType = "general"
)

// Preset is the default chunking geometry for a document type.
type Preset struct {
	ChunkSize    int
	ChunkOverlap int
}

// Presets by document type. Types without an entry (philosophy) use the
// general preset.
var Presets = map[DocType]Preset{
	Dogmatics:  {ChunkSize: 2000, ChunkOverlap: 400},
	Dictionary: {ChunkSize: 1500, ChunkOverlap: 300},
	Commentary: {ChunkSize: 1000, ChunkOverlap: 150},
	General:    {ChunkSize: 1000, ChunkOverlap: 150},
}

// PresetFor returns the chunking preset for a document type.
func PresetFor(dt DocType) Preset {
	if p, ok := Presets[dt]; ok {
		return p
	}
	return Presets[General]
}

// Parsed is the canonical document-level metadata. The filename parser
// produces it, sidecars and caller overrides patch it, and everything
// downstream reads it as-is.
type Parsed struct {
	Author        string   `json:"author"`
	Title         string   `json:"title"`
	Year          *int     `json:"year,omitempty"`
	DocType       DocType  `json:"doc_type"`
	Languages     []string `json:"languages"`
	TheologyField string   `json:"theology_field,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Series        string   `json:"series,omitempty"`
	Volume        *int     `json:"volume,omitempty"`
	ChunkSize     int      `json:"chunk_size"`
	ChunkOverlap  int      `json:"chunk_overlap"`
	PageOffset    int      `json:"page_offset"`
	Spread        bool     `json:"spread,omitempty"`
	// Confidence grades how the metadata was obtained: 0.95 series pattern,
	// 0.9/0.85/0.7 filename templates, 0.3 fallback.
	Confidence float64 `json:"confidence"`
}

// NewParsed returns the zero-confidence default metadata.
func NewParsed() *Parsed {
	return &Parsed{
		Author:       "Unknown",
		DocType:      General,
		Languages:    []string{"en"},
		ChunkSize:    800,
		ChunkOverlap: 100,
	}
}

// ChunkMeta is the canonical denormalized per-chunk metadata stored next to
// every embedded chunk and mirrored into the JSON archive.
type ChunkMeta struct {
	Source   string `json:"source"`
	Filename string `json:"filename"`
	Author   string `json:"author,omitempty"`
	Title    string `json:"title,omitempty"`

	DocType   DocType  `json:"doc_type"`
	Year      *int     `json:"year,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Series    string   `json:"series,omitempty"`
	Volume    *int     `json:"volume,omitempty"`

	// PageNumber is the printed page, PDFPage the physical one.
	PageNumber *int `json:"page_number,omitempty"`
	PDFPage    int  `json:"pdf_page,omitempty"`
	TotalPages int  `json:"total_pages,omitempty"`
	Spread     bool `json:"is_spread,omitempty"`
	// PageLowConfidence marks a page number resolved inside an irregular
	// mapping zone; citations built from it need checking.
	PageLowConfidence bool `json:"page_low_confidence,omitempty"`

	Lemma            string `json:"lemma,omitempty"`
	LemmaChunkIndex  int    `json:"lemma_chunk_index,omitempty"`
	LemmaTotalChunks int    `json:"lemma_total_chunks,omitempty"`

	Category      []string `json:"category,omitempty"`
	RelatedLemmas []string `json:"related_lemmas,omitempty"`

	ChunkTokens int       `json:"chunk_tokens,omitempty"`
	ChunkType   string    `json:"chunk_type,omitempty"`
	IndexedAt   time.Time `json:"indexed_at,omitzero"`
	Reindexed   bool      `json:"reindexed,omitempty"`
}
