package meta

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// KnownAuthors canonicalizes author names by lowercase substring match.
var KnownAuthors = map[string]string{
	"barth":          "Karl Barth",
	"bonhoeffer":     "Dietrich Bonhoeffer",
	"calvin":         "John Calvin",
	"luther":         "Martin Luther",
	"tillich":        "Paul Tillich",
	"bultmann":       "Rudolf Bultmann",
	"moltmann":       "Jürgen Moltmann",
	"pannenberg":     "Wolfhart Pannenberg",
	"welker":         "Michael Welker",
	"jüngel":         "Eberhard Jüngel",
	"jungel":         "Eberhard Jüngel",
	"schleiermacher": "Friedrich Schleiermacher",
}

// DictSeries maps lowercase series keys to their canonical abbreviations.
var DictSeries = map[string]string{
	"tdnt":    "TDNT",
	"nidntt":  "NIDNTT",
	"ednt":    "EDNT",
	"twot":    "TWOT",
	"nidotte": "NIDOTTE",
	"tre":     "TRE",
	"rgg":     "RGG",
	"ekl":     "EKL",
}

// Keyword sets for document-type detection, matched against the lowercased
// full path and title.
var (
	dictKeywords = []string{"dictionary", "lexicon", "사전", "wörterbuch", "tdnt", "nidntt", "tre", "rgg"}
	commKeywords = []string{"commentary", "kommentar", "주석", "exegesis"}
	philKeywords = []string{"philosophy", "philosophie", "철학", "hegel", "kant", "heidegger"}
)

var (
	// "Author - Title (Year).ext"
	patternAuthorTitleYear = regexp.MustCompile(`^([^-]+?)\s*-\s*(.+?)\s*\((\d{4})\)\s*\.(\w+)$`)
	// "Author_Title_Year.ext"
	patternUnderscore = regexp.MustCompile(`^([^_]+?)_(.+?)_(\d{4})\.(\w+)$`)
	// "TDNT_Vol1.pdf", "TRE_Bd04.pdf"
	patternDictSeries = regexp.MustCompile(`(?i)^([A-Za-z]+)[\s_-]*(?:Vol\.?|Band|Bd\.?)?[\s_]*(\d+)\.(\w+)$`)
	// "Title - Author.ext"
	patternTitleAuthor = regexp.MustCompile(`^(.+?)\s*-\s*([^(]+?)\.(\w+)$`)

	yearFallbackRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// confidenceFloor is the template confidence a pattern must exceed to win
// over the fallback parse.
const confidenceFloor = 0.5

// Parser extracts document metadata from file names and paths.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a filename metadata parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse extracts metadata from a file path. Ordered filename templates are
// tried first; the first one confident enough wins. Otherwise the fallback
// parse cleans the stem into a title at low confidence.
func (p *Parser) Parse(path string) *Parsed {
	filename := filepath.Base(path)
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))

	type handler func(match []string, stem string) *Parsed
	templates := []struct {
		re *regexp.Regexp
		fn handler
	}{
		{patternAuthorTitleYear, p.parseAuthorTitleYear},
		{patternUnderscore, p.parseUnderscore},
		{patternDictSeries, p.parseDictSeries},
		{patternTitleAuthor, p.parseTitleAuthor},
	}

	for _, tpl := range templates {
		m := tpl.re.FindStringSubmatch(filename)
		if m == nil {
			continue
		}
		parsed := tpl.fn(m, stem)
		if parsed.Confidence > confidenceFloor {
			p.enrich(parsed, path)
			p.logger.Debug("filename_parsed",
				slog.String("file", filename),
				slog.Float64("confidence", parsed.Confidence))
			return parsed
		}
	}

	return p.fallbackParse(path, stem)
}

func (p *Parser) parseAuthorTitleYear(m []string, _ string) *Parsed {
	parsed := NewParsed()
	parsed.Author = normalizeAuthor(m[1])
	parsed.Title = strings.TrimSpace(m[2])
	if year, err := strconv.Atoi(m[3]); err == nil {
		parsed.Year = &year
	}
	parsed.Confidence = 0.9
	return parsed
}

func (p *Parser) parseUnderscore(m []string, _ string) *Parsed {
	parsed := NewParsed()
	parsed.Author = normalizeAuthor(strings.ReplaceAll(m[1], "_", " "))
	parsed.Title = strings.TrimSpace(strings.ReplaceAll(m[2], "_", " "))
	if year, err := strconv.Atoi(m[3]); err == nil {
		parsed.Year = &year
	}
	parsed.Confidence = 0.85
	return parsed
}

func (p *Parser) parseDictSeries(m []string, _ string) *Parsed {
	key := strings.ToLower(m[1])
	abbr, ok := DictSeries[key]
	if !ok {
		abbr = strings.ToUpper(key)
	}
	volume, _ := strconv.Atoi(m[2])

	parsed := NewParsed()
	parsed.Author = "Various"
	parsed.Title = fmt.Sprintf("%s Volume %d", abbr, volume)
	parsed.DocType = Dictionary
	parsed.Series = abbr
	parsed.Volume = &volume
	preset := PresetFor(Dictionary)
	parsed.ChunkSize = preset.ChunkSize
	parsed.ChunkOverlap = preset.ChunkOverlap
	parsed.Confidence = 0.95
	return parsed
}

func (p *Parser) parseTitleAuthor(m []string, stem string) *Parsed {
	parsed := NewParsed()
	parsed.Title = strings.TrimSpace(m[1])
	parsed.Author = normalizeAuthor(m[2])
	parsed.Year = extractYear(stem)
	parsed.Confidence = 0.7
	return parsed
}

// enrich fills in doc type, preset geometry, and languages after a template
// match.
func (p *Parser) enrich(parsed *Parsed, path string) {
	if parsed.DocType == General {
		parsed.DocType = detectDocType(path, parsed.Title)
	}
	preset := PresetFor(parsed.DocType)
	parsed.ChunkSize = preset.ChunkSize
	parsed.ChunkOverlap = preset.ChunkOverlap

	if len(parsed.Languages) == 1 && parsed.Languages[0] == "en" {
		parsed.Languages = detectLanguages(path)
	}
}

func (p *Parser) fallbackParse(path, stem string) *Parsed {
	parsed := NewParsed()
	parsed.Title = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(stem))
	parsed.Year = extractYear(stem)
	parsed.DocType = detectDocType(path, parsed.Title)
	preset := PresetFor(parsed.DocType)
	parsed.ChunkSize = preset.ChunkSize
	parsed.ChunkOverlap = preset.ChunkOverlap
	parsed.Languages = detectLanguages(path)
	parsed.Confidence = 0.3

	p.logger.Debug("filename_parse_fallback", slog.String("file", filepath.Base(path)))
	return parsed
}

func normalizeAuthor(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, "_", " ")))
	for key, full := range KnownAuthors {
		if strings.Contains(lower, key) {
			return full
		}
	}

	words := strings.Fields(strings.TrimSpace(raw))
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " ")
}

func extractYear(text string) *int {
	m := yearFallbackRe.FindString(text)
	if m == "" {
		return nil
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &year
}

func detectDocType(path, title string) DocType {
	haystack := strings.ToLower(path) + " " + strings.ToLower(title)

	for _, k := range dictKeywords {
		if strings.Contains(haystack, k) {
			return Dictionary
		}
	}
	for _, k := range commKeywords {
		if strings.Contains(haystack, k) {
			return Commentary
		}
	}
	for _, k := range philKeywords {
		if strings.Contains(haystack, k) {
			return Philosophy
		}
	}
	return Dogmatics
}

func detectLanguages(path string) []string {
	lower := strings.ToLower(path)
	var langs []string

	if containsAny(lower, "german", "deutsch", "_de_", "_deu") {
		langs = append(langs, "de")
	}
	if containsAny(lower, "korean", "한국", "_ko_", "_kor") {
		langs = append(langs, "ko")
	}
	if containsAny(lower, "english", "_en_", "_eng") {
		langs = append(langs, "en")
	}

	if len(langs) == 0 {
		return []string{"en"}
	}
	return langs
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
