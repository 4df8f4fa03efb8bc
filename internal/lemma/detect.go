// Package lemma detects dictionary headwords at chunk starts, assigns
// chunk positions within multi-chunk entries, and maintains the archive-wide
// inverted lemma index.
package lemma

import (
	"regexp"
	"strings"
)

// sampleRunes bounds how far into a chunk a headword is looked for.
const sampleRunes = 300

// Accepted headword length in runes.
const (
	minLemmaLen = 2
	maxLemmaLen = 50
)

// Headword patterns in priority order: all-caps run (TDNT style), mixed-case
// compound joined by und/u./comma/slash (HWPh, ThWAT style), Greek run,
// Hebrew run.
var lemmaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^([A-ZÄÖÜ]{2,}(?:\s+[A-ZÄÖÜ]{2,})*)[.,\s]`),
	regexp.MustCompile(`^([A-ZÄÖÜ][a-zäöüß]+(?:\s+(?:und|u\.|,|/)\s*[A-ZÄÖÜ]?[a-zäöüß]+)*)[.,]`),
	regexp.MustCompile(`^([α-ωΑ-Ωά-ώἀ-ῼ]+)[\s,.]`),
	regexp.MustCompile(`^([א-ת]+)[\s,.]`),
}

// Detect returns the headword opening a chunk, or "" when the chunk starts
// mid-entry. Only the first few hundred characters are inspected.
func Detect(text string) string {
	sample := []rune(strings.TrimSpace(text))
	if len(sample) > sampleRunes {
		sample = sample[:sampleRunes]
	}

	s := string(sample)
	for _, re := range lemmaPatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if n := len([]rune(candidate)); n >= minLemmaLen && n <= maxLemmaLen {
			return candidate
		}
	}
	return ""
}

// Normalize lowercases and trims a lemma for index keying.
func Normalize(lemma string) string {
	return strings.ToLower(strings.TrimSpace(lemma))
}

// Assignment places one chunk within its owning lemma entry.
type Assignment struct {
	// Lemma is the governing headword, "" for chunks before any headword.
	Lemma string
	// Index is the 1-based position within the lemma's chunks, 0 without one.
	Index int
	// Total is the lemma's chunk count, 0 without one.
	Total int
}

// accumulator carries the governing headword through a fold over chunk
// texts. It is passed and returned explicitly so the carry-forward rule
// stays visible at the call site.
type accumulator struct {
	current string
	owners  []string
}

func foldHeadword(acc accumulator, text string) accumulator {
	if detected := Detect(text); detected != "" {
		acc.current = detected
	}
	acc.owners = append(acc.owners, acc.current)
	return acc
}

// AssignLemmas determines each chunk's owning lemma and its position within
// that lemma's chunk run. Two passes: the first folds headword detection over
// the texts, carrying the current lemma forward through continuation chunks;
// the second counts per-lemma totals and hands out gap-free 1-based indices.
func AssignLemmas(texts []string) []Assignment {
	acc := accumulator{owners: make([]string, 0, len(texts))}
	for _, text := range texts {
		acc = foldHeadword(acc, text)
	}

	totals := make(map[string]int)
	for _, owner := range acc.owners {
		if owner != "" {
			totals[owner]++
		}
	}

	assignments := make([]Assignment, len(texts))
	seen := make(map[string]int)
	for i, owner := range acc.owners {
		if owner == "" {
			continue
		}
		seen[owner]++
		assignments[i] = Assignment{
			Lemma: owner,
			Index: seen[owner],
			Total: totals[owner],
		}
	}
	return assignments
}
