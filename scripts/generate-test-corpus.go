//go:build ignore

// Package main generates a synthetic document corpus for manual pipeline
// testing. Output files follow the naming conventions the metadata parser
// recognizes, so a generated inbox exercises routing, chunking, and lemma
// detection end to end.
//
// Usage: go run scripts/generate-test-corpus.go -files 20 -output inbox
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numFiles  = flag.Int("files", 20, "Number of files to generate")
	outputDir = flag.String("output", "inbox", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var headwords = []string{
	"Gnade", "Rechtfertigung", "Offenbarung", "Erwaehlung", "Versoehnung",
	"Schoepfung", "Eschatologie", "Trinitaet", "Christologie", "Pneumatologie",
	"Glaube", "Hoffnung", "Liebe", "Suende", "Heiligung", "Taufe", "Abendmahl",
	"Kirche", "Gemeinde", "Bekenntnis",
}

var sentences = []string{
	"Die Theologie hat es mit dem Wort zu tun, das ihr vorausgeht.",
	"Der Begriff wird in der aelteren Dogmatik unterschiedlich gefasst.",
	"Die reformatorische Tradition betont hier die Unverfuegbarkeit des Heils.",
	"Exegetisch ist der Befund keineswegs eindeutig.",
	"Die patristische Diskussion kreist um die Einheit von Person und Werk.",
	"Im Unterschied zur scholastischen Fassung bleibt der Akzent relational.",
	"Die neuere Forschung hat diese Deutung erheblich differenziert.",
	"Der systematische Ertrag liegt in der Verhaeltnisbestimmung von Gesetz und Evangelium.",
	"Das Bekenntnis der Gemeinde antwortet auf das gehoerte Wort.",
	"Die eschatologische Dimension darf dabei nicht uebersehen werden.",
}

var dogmaticsAuthors = []struct{ author, title string }{
	{"Karl Barth", "Kirchliche Dogmatik"},
	{"Wolfhart Pannenberg", "Systematische Theologie"},
	{"Paul Tillich", "Systematische Theologie"},
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < *numFiles; i++ {
		var name, content string
		switch i % 3 {
		case 0:
			name, content = dictionaryVolume(rng, i)
		case 1:
			name, content = dogmaticsVolume(rng, i)
		default:
			name, content = commentary(rng, i)
		}
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generated %d files in %s\n", *numFiles, *outputDir)
}

// dictionaryVolume emits a TRE-style volume with bold headword articles.
func dictionaryVolume(rng *rand.Rand, i int) (string, string) {
	var sb strings.Builder
	for _, hw := range pick(rng, headwords, 5) {
		fmt.Fprintf(&sb, "**%s**\n\n", hw)
		sb.WriteString(paragraph(rng, 6))
		sb.WriteString("\n\n")
		sb.WriteString(paragraph(rng, 5))
		sb.WriteString("\n\n")
	}
	return fmt.Sprintf("TRE_Bd%02d.txt", i/3+1), sb.String()
}

// dogmaticsVolume emits an author-title-year document with numbered sections.
func dogmaticsVolume(rng *rand.Rand, i int) (string, string) {
	d := dogmaticsAuthors[i%len(dogmaticsAuthors)]
	var sb strings.Builder
	for s := 1; s <= 4; s++ {
		fmt.Fprintf(&sb, "§ %d Die Lehre von der %s\n\n", s, headwords[rng.Intn(len(headwords))])
		sb.WriteString(paragraph(rng, 8))
		sb.WriteString("\n\n")
		sb.WriteString(paragraph(rng, 7))
		sb.WriteString("\n\n")
	}
	name := fmt.Sprintf("%s - %s (%d).txt", d.author, d.title, 1930+i)
	return name, sb.String()
}

// commentary emits verse-keyed exegesis.
func commentary(rng *rand.Rand, i int) (string, string) {
	var sb strings.Builder
	for v := 1; v <= 6; v++ {
		fmt.Fprintf(&sb, "Roemer %d,%d\n\n", i%16+1, v)
		sb.WriteString(paragraph(rng, 6))
		sb.WriteString("\n\n")
	}
	return fmt.Sprintf("Kommentar_Roemerbrief_%02d.txt", i/3+1), sb.String()
}

func paragraph(rng *rand.Rand, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = sentences[rng.Intn(len(sentences))]
	}
	return strings.Join(parts, " ")
}

func pick(rng *rand.Rand, pool []string, n int) []string {
	out := append([]string(nil), pool...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}
