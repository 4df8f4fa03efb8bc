package ui

import (
	"fmt"
	"strings"

	"github.com/theolab/theoindex/internal/search"
)

// RenderSearchResults formats search results for terminal display.
func RenderSearchResults(query string, results []search.Result, styles Styles) string {
	if len(results) == 0 {
		return styles.Dim.Render(fmt.Sprintf("No results for %q.", query)) + "\n"
	}

	var sb strings.Builder
	sb.WriteString(styles.Header.Render(fmt.Sprintf("Results for %q", query)))
	sb.WriteString("\n\n")

	for i, r := range results {
		sb.WriteString(styles.Citation.Render(fmt.Sprintf("%d. %s", i+1, Citation(r))))
		sb.WriteString("  ")
		sb.WriteString(styles.Method.Render(fmt.Sprintf("[%s %.2f]", r.Method, r.Score)))
		sb.WriteString("\n")

		if r.Metadata.Lemma != "" {
			sb.WriteString("   ")
			sb.WriteString(styles.Lemma.Render(r.Metadata.Lemma))
			if r.Metadata.LemmaTotalChunks > 1 {
				sb.WriteString(styles.Dim.Render(fmt.Sprintf(" (%d/%d)",
					r.Metadata.LemmaChunkIndex, r.Metadata.LemmaTotalChunks)))
			}
			sb.WriteString("\n")
		}

		for _, line := range wrapText(r.Content, 96) {
			sb.WriteString("   ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// Citation builds the provenance line for one result: author, source,
// volume, page.
func Citation(r search.Result) string {
	parts := []string{r.Source}
	if r.Metadata.Volume != nil {
		parts = append(parts, fmt.Sprintf("Bd. %d", *r.Metadata.Volume))
	}
	if r.Page != nil {
		parts = append(parts, fmt.Sprintf("S. %d", *r.Page))
	}
	s := strings.Join(parts, ", ")
	if r.Author != "" {
		s = r.Author + ", " + s
	}
	return s
}

// StatusReport is the data for the status command display.
type StatusReport struct {
	ChunkCount   int
	Sources      []string
	ArchiveFiles int
	LemmaCount   int
	Embedder     EmbedderInfo
	Checks       []CheckResult
}

// CheckResult is one environment check outcome.
type CheckResult struct {
	Name   string
	OK     bool
	Detail string
	IsWarn bool
}

// RenderStatus formats the status report for terminal display.
func RenderStatus(report StatusReport, styles Styles) string {
	var sb strings.Builder

	sb.WriteString(styles.Header.Render("Index"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  %s %d\n", styles.Label.Render("Chunks:"), report.ChunkCount)
	fmt.Fprintf(&sb, "  %s %d\n", styles.Label.Render("Archive files:"), report.ArchiveFiles)
	if report.LemmaCount > 0 {
		fmt.Fprintf(&sb, "  %s %d\n", styles.Label.Render("Lemmas:"), report.LemmaCount)
	}
	if len(report.Sources) > 0 {
		fmt.Fprintf(&sb, "  %s %s\n", styles.Label.Render("Sources:"), strings.Join(report.Sources, ", "))
	}

	sb.WriteString("\n")
	sb.WriteString(styles.Header.Render("Embedder"))
	sb.WriteString("\n")
	model := report.Embedder.Model
	if model == "" {
		model = "none"
	}
	fmt.Fprintf(&sb, "  %s %s", styles.Label.Render("Model:"), model)
	if report.Embedder.Dimensions > 0 {
		fmt.Fprintf(&sb, " (%d dims)", report.Embedder.Dimensions)
	}
	if report.Embedder.Fallback {
		sb.WriteString(styles.Warning.Render("  offline fallback"))
	}
	sb.WriteString("\n")

	if len(report.Checks) > 0 {
		sb.WriteString("\n")
		sb.WriteString(styles.Header.Render("Environment"))
		sb.WriteString("\n")
		for _, c := range report.Checks {
			icon := styles.Success.Render("✓")
			if !c.OK {
				if c.IsWarn {
					icon = styles.Warning.Render("⚠")
				} else {
					icon = styles.Error.Render("✗")
				}
			}
			fmt.Fprintf(&sb, "  %s %s", icon, c.Name)
			if c.Detail != "" {
				fmt.Fprintf(&sb, " %s", styles.Dim.Render("("+c.Detail+")"))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// wrapText wraps text to the given width on word boundaries. Words longer
// than the width (long compound nouns, URLs) get their own line.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	lines = append(lines, line)
	return lines
}
