// Package archive routes documents to chunking configurations and owns the
// JSON archive directory: one chunk file per indexed source, read back for
// re-indexing, lemma indexing, and the lexical search leg.
package archive

import (
	"path/filepath"
	"strings"

	"github.com/theolab/theoindex/internal/meta"
)

// Folder keywords marking a dictionary/lexicon shelf. Folder placement is a
// deliberate signal and beats any filename heuristic.
var dictFolderKeywords = []string{
	"dictionary", "lexicon", "사전", "주석", "wörterbuch",
	"commentary", "kommentar", "tdnt", "twot", "nidntt", "lex",
}

// Filename keywords strong enough to route on their own. Narrower than the
// folder list because filenames are noisy.
var dictFilenameKeywords = []string{"tdnt", "nidntt", "lexicon", "wörterbuch"}

// Route is a chunking configuration chosen for a document.
type Route struct {
	ChunkSize    int
	ChunkOverlap int
	DocType      meta.DocType
}

// ChunkConfig picks the chunking configuration for a file: parent-folder
// keyword match first, then strong filename keywords, else dogmatics-sized
// defaults.
func ChunkConfig(path string) Route {
	lower := strings.ToLower(path)
	filename := filepath.Base(lower)
	parent := filepath.Base(filepath.Dir(lower))

	for _, k := range dictFolderKeywords {
		if strings.Contains(parent, k) {
			return Route{ChunkSize: 400, ChunkOverlap: 50, DocType: meta.Dictionary}
		}
	}

	for _, k := range dictFilenameKeywords {
		if strings.Contains(filename, k) {
			return Route{ChunkSize: 400, ChunkOverlap: 50, DocType: meta.Dictionary}
		}
	}

	return Route{ChunkSize: 1200, ChunkOverlap: 150, DocType: meta.Dogmatics}
}
