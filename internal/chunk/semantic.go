package chunk

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/theolab/theoindex/internal/lemma"
	"github.com/theolab/theoindex/internal/meta"
)

var (
	// headingRe matches markdown headers, numbered sections, lettered and
	// Roman-numeral headers at line start.
	headingRe = regexp.MustCompile(`(?m)^(?:#{1,6}\s+|(?:\d+\.)+\s+|[A-Z]\.\s+|[IVX]+\.\s+)(.+)$`)

	// verseRe matches bible verse references introducing commentary blocks:
	// "1:1", "12.", "v. 3", "verse 4".
	verseRe = regexp.MustCompile(`(?im)(?:^|\n)(?:(?:\d+:)?\d+\.?\s+|v\.?\s*\d+|verse\s+\d+)`)

	paragraphRe = regexp.MustCompile(`\n\s*\n`)
)

// Semantic splits text along document structure instead of token windows:
// dictionary entries by headword, commentaries by verse reference, dogmatics
// by heading and paragraph.
type Semantic struct {
	tok    *Tokenizer
	logger *slog.Logger
}

// NewSemantic creates a structure-aware chunker.
func NewSemantic(tok *Tokenizer, logger *slog.Logger) *Semantic {
	if tok == nil {
		tok = NewTokenizer(logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Semantic{tok: tok, logger: logger}
}

// Chunk splits text by the strategy for docType with maxSize as the token
// budget. A strategy yielding zero chunks retries with the generic
// paragraph strategy.
func (s *Semantic) Chunk(text string, docType meta.DocType, maxSize int, base meta.ChunkMeta) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = meta.PresetFor(docType).ChunkSize
	}

	var chunks []Chunk
	switch docType {
	case meta.Dictionary:
		chunks = s.chunkDictionary(text, maxSize, base)
	case meta.Commentary:
		chunks = s.chunkCommentary(text, maxSize, base)
	default:
		chunks = s.chunkDogmatics(text, maxSize, base)
	}

	if len(chunks) == 0 && docType != meta.Dogmatics {
		s.logger.Debug("semantic_fallback_paragraphs", slog.String("doc_type", string(docType)))
		chunks = s.chunkDogmatics(text, maxSize, base)
	}
	return chunks
}

// chunkDictionary splits by headword boundaries, one entry per detected
// lemma. Oversize entries are further split by paragraph.
func (s *Semantic) chunkDictionary(text string, maxSize int, base meta.ChunkMeta) []Chunk {
	entries := splitByLemma(text)
	hasHeadword := false
	for _, e := range entries {
		if e.lemma != "" {
			hasHeadword = true
			break
		}
	}
	if !hasHeadword {
		return nil
	}

	var chunks []Chunk
	prevOffset := 0

	for _, entry := range entries {
		entryText := strings.TrimSpace(entry.text)
		if len(entryText) < minEntryLength {
			continue
		}

		if len(entryText) > maxSize*oversizeFactor {
			for _, para := range splitByParagraph(entryText, maxSize) {
				chunks, prevOffset = s.appendChunk(chunks, text, para, TypeEntry, entry.lemma, base, prevOffset)
			}
		} else {
			chunks, prevOffset = s.appendChunk(chunks, text, entryText, TypeEntry, entry.lemma, base, prevOffset)
		}
	}
	return chunks
}

// chunkCommentary splits at verse-reference boundaries.
func (s *Semantic) chunkCommentary(text string, maxSize int, base meta.ChunkMeta) []Chunk {
	parts := verseRe.Split(text, -1)

	var chunks []Chunk
	prevOffset := 0
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if len(part) < minEntryLength {
			continue
		}

		if len(part) > maxSize*oversizeFactor {
			for _, para := range splitByParagraph(part, maxSize) {
				chunks, prevOffset = s.appendChunk(chunks, text, para, TypeVerse, "", base, prevOffset)
			}
		} else {
			chunks, prevOffset = s.appendChunk(chunks, text, part, TypeVerse, "", base, prevOffset)
		}
	}
	return chunks
}

// chunkDogmatics splits by structural headings, then each section by
// paragraph with adjacent short paragraphs re-merged up to the budget.
func (s *Semantic) chunkDogmatics(text string, maxSize int, base meta.ChunkMeta) []Chunk {
	var chunks []Chunk
	prevOffset := 0

	for _, sec := range splitByHeading(text) {
		typ := TypeParagraph
		if sec.heading != "" {
			typ = TypeSection
		}
		for _, para := range splitByParagraph(sec.text, maxSize) {
			if len(strings.TrimSpace(para)) < minEntryLength {
				continue
			}
			chunks, prevOffset = s.appendChunk(chunks, text, para, typ, "", base, prevOffset)
		}
	}
	return chunks
}

func (s *Semantic) appendChunk(chunks []Chunk, source, text string, typ Type, headword string, base meta.ChunkMeta, prevOffset int) ([]Chunk, int) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chunks, prevOffset
	}

	start := locate(source, text, prevOffset)
	md := base
	md.ChunkTokens = s.tok.Count(text)
	md.ChunkType = string(typ)
	if headword != "" {
		md.Lemma = headword
	}

	chunks = append(chunks, Chunk{
		Text:       text,
		TokenCount: md.ChunkTokens,
		Type:       typ,
		StartIndex: start,
		Metadata:   md,
	})
	return chunks, start + len(text)/2
}

type lemmaEntry struct {
	text  string
	lemma string
}

// splitByLemma walks the text line by line, opening a new entry whenever a
// line starts with a detectable headword.
func splitByLemma(text string) []lemmaEntry {
	var entries []lemmaEntry
	var current []string
	currentLemma := ""

	flush := func() {
		if len(current) > 0 {
			entries = append(entries, lemmaEntry{text: strings.Join(current, "\n"), lemma: currentLemma})
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if headword := lemma.Detect(line); headword != "" {
			flush()
			current = []string{line}
			currentLemma = headword
		} else {
			current = append(current, line)
		}
	}
	flush()

	if len(entries) == 0 {
		return []lemmaEntry{{text: text}}
	}
	return entries
}

type section struct {
	text    string
	heading string
}

// splitByHeading carves the text at structural headings; content before the
// first heading becomes an unheaded leading section.
func splitByHeading(text string) []section {
	matches := headingRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []section{{text: text}}
	}

	var sections []section
	if pre := strings.TrimSpace(text[:matches[0][0]]); pre != "" {
		sections = append(sections, section{text: pre})
	}

	for i, m := range matches {
		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		heading := strings.TrimSpace(text[m[2]:m[3]])
		body := strings.TrimSpace(text[start:end])
		if body != "" {
			sections = append(sections, section{text: body, heading: heading})
		}
	}
	return sections
}

// splitByParagraph splits on blank lines and re-merges adjacent paragraphs
// while they fit the character proxy of the token budget.
func splitByParagraph(text string, maxSize int) []string {
	budget := maxSize * charsPerToken

	var out []string
	current := ""
	for _, para := range paragraphRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current != "" && len(current)+len(para) > budget {
			out = append(out, current)
			current = para
			continue
		}
		if current == "" {
			current = para
		} else {
			current = current + "\n\n" + para
		}
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}
