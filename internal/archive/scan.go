package archive

import (
	"context"
	"sort"
	"strings"

	"github.com/theolab/theoindex/internal/meta"
)

// maxScanFiles bounds a keyword scan; the archive is small by design and a
// runaway directory should not stall a query.
const maxScanFiles = 50

// Match is one keyword hit from the archive scan.
type Match struct {
	Content  string
	Metadata meta.ChunkMeta
	// Score is matched-term-count / term-count, in (0, 1].
	Score float64
	// File is the archive file the chunk came from.
	File string
}

// Scan searches every archived chunk for the given terms, case-insensitive.
// Unreadable archive files are skipped; the lexical leg degrades rather than
// fails.
func (s *Store) Scan(ctx context.Context, terms []string, limit int) ([]Match, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}

	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	if len(files) > maxScanFiles {
		files = files[:maxScanFiles]
	}

	var matches []Match
	for _, file := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		doc, err := ReadFile(file)
		if err != nil {
			continue
		}

		for _, chunk := range doc.Chunks {
			if chunk.Content == "" {
				continue
			}
			content := strings.ToLower(chunk.Content)
			hit := 0
			for _, term := range lowered {
				if strings.Contains(content, term) {
					hit++
				}
			}
			if hit == 0 {
				continue
			}

			md := chunk.Metadata
			if md.Source == "" {
				md.Source = doc.Source
			}
			matches = append(matches, Match{
				Content:  chunk.Content,
				Metadata: md,
				Score:    float64(hit) / float64(len(lowered)),
				File:     file,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
