package mcp

import (
	"fmt"
	"strings"

	"github.com/theolab/theoindex/internal/search"
)

// FormatSearchResults formats search results as markdown.
func FormatSearchResults(query string, results []search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search Results for \"%s\"\n\n", query))
	sb.WriteString(fmt.Sprintf("Found %d result", len(results)))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		formatResult(&sb, i+1, r)
	}

	return sb.String()
}

// formatResult formats a single result with its citation line.
func formatResult(sb *strings.Builder, num int, r search.Result) {
	fmt.Fprintf(sb, "### %d. %s (score: %.2f, %s)\n", num, citation(r), r.Score, r.Method)

	if r.Metadata.Lemma != "" {
		fmt.Fprintf(sb, "**Lemma:** %s\n", r.Metadata.Lemma)
	}

	sb.WriteString("\n")
	sb.WriteString(r.Content)
	sb.WriteString("\n\n---\n\n")
}

// citation builds the human-readable provenance line: source, volume, page.
func citation(r search.Result) string {
	parts := []string{r.Source}
	if r.Metadata.Volume != nil {
		parts = append(parts, fmt.Sprintf("Bd. %d", *r.Metadata.Volume))
	}
	if r.Page != nil {
		parts = append(parts, fmt.Sprintf("S. %d", *r.Page))
	}
	s := strings.Join(parts, ", ")
	if r.Author != "" {
		s = fmt.Sprintf("%s, %s", r.Author, s)
	}
	return s
}

// FormatLemmaEntries formats a lemma lookup as markdown.
func FormatLemmaEntries(out *LemmaLookupOutput) string {
	if !out.Found {
		return fmt.Sprintf("Lemma \"%s\" is not in the index.", out.Lemma)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", out.Lemma))
	sb.WriteString(fmt.Sprintf("Found in %d location", len(out.Entries)))
	if len(out.Entries) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for _, e := range out.Entries {
		loc := e.Source
		if loc == "" {
			loc = e.File
		}
		if e.Volume != nil {
			loc = fmt.Sprintf("%s, Bd. %d", loc, *e.Volume)
		}
		if e.Page != nil {
			loc = fmt.Sprintf("%s, S. %d", loc, *e.Page)
		}
		fmt.Fprintf(&sb, "- **%s**", loc)
		if len(e.Category) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(e.Category, ", "))
		}
		sb.WriteString("\n")
		if len(e.Related) > 0 {
			fmt.Fprintf(&sb, "  Related: %s\n", strings.Join(e.Related, ", "))
		}
	}

	return sb.String()
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// ToSearchResultOutput converts an engine result to the tool output format.
func ToSearchResultOutput(r search.Result) SearchResultOutput {
	return SearchResultOutput{
		Content: r.Content,
		Source:  r.Source,
		Author:  r.Author,
		DocType: r.DocType,
		Page:    r.Page,
		Lemma:   r.Metadata.Lemma,
		Score:   r.Score,
		Method:  r.Method,
	}
}
