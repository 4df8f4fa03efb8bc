package chunk

import (
	"log/slog"
	"strings"

	"github.com/theolab/theoindex/internal/meta"
)

// separatorCascade orders split points from strongest to weakest; the empty
// string means rune-level splitting as the last resort.
var separatorCascade = []string{"\n\n\n", "\n\n", "\n", ". ", "! ", "? ", "; ", " ", ""}

// Splitter is the token-aware recursive chunker. Chunk sizes and overlap are
// measured in tokenizer tokens, not characters.
type Splitter struct {
	tok    *Tokenizer
	logger *slog.Logger
}

// NewSplitter creates a token-aware splitter.
func NewSplitter(tok *Tokenizer, logger *slog.Logger) *Splitter {
	if tok == nil {
		tok = NewTokenizer(logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{tok: tok, logger: logger}
}

// Split breaks text into chunks of at most chunkSize tokens with roughly
// overlap tokens repeated between consecutive chunks. Fragments shorter than
// MinChunkLength characters are dropped. base is copied into every chunk's
// metadata.
func (s *Splitter) Split(text string, chunkSize, overlap int, base meta.ChunkMeta) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = meta.PresetFor(meta.General).ChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 10
	}

	raw := s.splitText(text, separatorCascade, chunkSize, overlap)

	var chunks []Chunk
	prevOffset := 0
	for _, piece := range raw {
		trimmed := strings.TrimSpace(piece)
		if len(trimmed) < MinChunkLength {
			continue
		}

		start := locate(text, trimmed, prevOffset)
		md := base
		md.ChunkTokens = s.tok.Count(trimmed)
		md.ChunkType = string(TypeParagraph)

		chunks = append(chunks, Chunk{
			Text:       trimmed,
			TokenCount: md.ChunkTokens,
			Type:       TypeParagraph,
			StartIndex: start,
			Metadata:   md,
		})
		// Advance the search anchor past the first half of this chunk so the
		// overlap region of the next chunk still resolves.
		prevOffset = start + len(trimmed)/2
		if prevOffset < 0 {
			prevOffset = 0
		}
	}
	return chunks
}

// splitText recursively carves text along the separator cascade until every
// piece fits chunkSize tokens, then merges adjacent small pieces back up to
// the budget with an overlap tail.
func (s *Splitter) splitText(text string, seps []string, chunkSize, overlap int) []string {
	sep := ""
	rest := []string{}
	for i, c := range seps {
		if c == "" {
			sep = c
			break
		}
		if strings.Contains(text, c) {
			sep = c
			rest = seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = strings.Split(text, "")
	} else {
		pieces = strings.SplitAfter(text, sep)
	}

	var out []string
	var small []string
	flush := func() {
		if len(small) > 0 {
			out = append(out, s.merge(small, chunkSize, overlap)...)
			small = nil
		}
	}

	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		if s.tok.Count(piece) <= chunkSize {
			small = append(small, piece)
			continue
		}
		flush()
		if len(rest) == 0 {
			// Rune-level pieces never exceed the budget; this branch only
			// fires for pathological single tokens.
			out = append(out, piece)
		} else {
			out = append(out, s.splitText(piece, rest, chunkSize, overlap)...)
		}
	}
	flush()
	return out
}

// merge joins consecutive pieces up to chunkSize tokens, carrying a tail of
// at most overlap tokens into the next chunk.
func (s *Splitter) merge(pieces []string, chunkSize, overlap int) []string {
	var out []string
	var window []string
	total := 0

	for _, piece := range pieces {
		n := s.tok.Count(piece)
		if total+n > chunkSize && len(window) > 0 {
			out = append(out, strings.Join(window, ""))
			for len(window) > 0 && total > overlap {
				total -= s.tok.Count(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n
	}
	if len(window) > 0 {
		out = append(out, strings.Join(window, ""))
	}
	return out
}

// locate finds chunkText's offset within original: forward search from the
// previous chunk, then global, then whitespace-normalized with proportional
// mapping, then 0.
func locate(original, chunkText string, prevOffset int) int {
	if prevOffset > 0 && prevOffset < len(original) {
		if idx := strings.Index(original[prevOffset:], chunkText); idx >= 0 {
			return prevOffset + idx
		}
	}
	if idx := strings.Index(original, chunkText); idx >= 0 {
		return idx
	}

	normOrig := strings.Join(strings.Fields(original), " ")
	normChunk := strings.Join(strings.Fields(chunkText), " ")
	if normOrig == "" || normChunk == "" {
		return 0
	}
	if idx := strings.Index(normOrig, normChunk); idx >= 0 {
		return int(float64(idx) / float64(len(normOrig)) * float64(len(original)))
	}
	return 0
}
