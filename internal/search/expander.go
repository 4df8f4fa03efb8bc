package search

import (
	"regexp"
	"strings"
)

// conceptTerms maps a canonical theological concept to its parallel terms
// per language. Keys follow BCP 47 where one exists; "grc" is ancient Greek.
type conceptTerms map[string][]string

// theologicalConcepts is the built-in multilingual concept table. The
// canonical key is the Korean headword because the catalog originated in a
// Korean research library; lookup is language-neutral via the reverse index.
var theologicalConcepts = map[string]conceptTerms{
	"칭의": {
		"ko": {"칭의", "의롭다함", "칭의론"},
		"en": {"justification", "righteousness"},
		"de": {"Rechtfertigung", "Gerechtigkeit"},
	},
	"성화": {
		"ko": {"성화", "거룩하게 됨"},
		"en": {"sanctification", "holiness"},
		"de": {"Heiligung", "Heiligkeit"},
	},
	"구원": {
		"ko": {"구원", "구속"},
		"en": {"salvation", "redemption"},
		"de": {"Heil", "Erlösung"},
	},
	"은혜": {
		"ko": {"은혜", "은총"},
		"en": {"grace", "divine grace"},
		"de": {"Gnade", "Gottes Gnade"},
	},
	"믿음": {
		"ko": {"믿음", "신앙"},
		"en": {"faith", "belief"},
		"de": {"Glaube", "Vertrauen"},
	},
	"삼위일체": {
		"ko": {"삼위일체", "삼위일체론"},
		"en": {"Trinity", "triune God"},
		"de": {"Trinität", "Dreieinigkeit"},
	},
	"성령": {
		"ko": {"성령", "성신"},
		"en": {"Holy Spirit", "Spirit of God"},
		"de": {"Heiliger Geist", "Geist Gottes"},
	},
	"기독론": {
		"ko": {"기독론", "그리스도론"},
		"en": {"Christology", "doctrine of Christ"},
		"de": {"Christologie"},
	},
	"성육신": {
		"ko": {"성육신", "육화"},
		"en": {"incarnation", "Word became flesh"},
		"de": {"Inkarnation", "Menschwerdung"},
	},
	"속죄": {
		"ko": {"속죄", "대속"},
		"en": {"atonement", "expiation"},
		"de": {"Versöhnung", "Sühne"},
	},
	"부활": {
		"ko": {"부활"},
		"en": {"resurrection"},
		"de": {"Auferstehung"},
	},
	"하나님의 형상": {
		"ko": {"하나님의 형상", "이마고 데이"},
		"en": {"image of God", "imago Dei"},
		"de": {"Ebenbild Gottes", "imago Dei"},
	},
	"원죄": {
		"ko": {"원죄", "타락"},
		"en": {"original sin", "the Fall"},
		"de": {"Erbsünde", "Sündenfall"},
	},
	"교회": {
		"ko": {"교회", "에클레시아"},
		"en": {"church", "ecclesia"},
		"de": {"Kirche", "Ekklesia"},
	},
	"종말론": {
		"ko": {"종말론"},
		"en": {"eschatology", "last things"},
		"de": {"Eschatologie", "Endzeit"},
	},
	"하나님 나라": {
		"ko": {"하나님 나라", "천국"},
		"en": {"Kingdom of God", "Kingdom of Heaven"},
		"de": {"Reich Gottes", "Himmelreich"},
	},
	"계시": {
		"ko": {"계시"},
		"en": {"revelation", "divine revelation"},
		"de": {"Offenbarung"},
	},
	"바르트": {
		"ko": {"바르트", "칼 바르트"},
		"en": {"Barth", "Karl Barth"},
		"de": {"Barth", "Karl Barth"},
	},
	"본회퍼": {
		"ko": {"본회퍼", "디트리히 본회퍼"},
		"en": {"Bonhoeffer", "Dietrich Bonhoeffer"},
		"de": {"Bonhoeffer", "Dietrich Bonhoeffer"},
	},
	"루터": {
		"ko": {"루터"},
		"en": {"Luther", "Martin Luther"},
		"de": {"Luther", "Martin Luther"},
	},
	"아가페": {
		"ko":  {"아가페", "사랑"},
		"en":  {"agape", "love"},
		"de":  {"Agape", "Liebe"},
		"grc": {"ἀγάπη"},
	},
	"로고스": {
		"ko":  {"로고스", "말씀"},
		"en":  {"logos", "Word"},
		"de":  {"Logos", "Wort"},
		"grc": {"λόγος"},
	},
}

var wordSplitRe = regexp.MustCompile(`[\s,;]+`)

// Expansion is a query expanded into a multilingual term set.
type Expansion struct {
	Original string
	// Terms is the deduplicated union of all languages' terms, query first.
	Terms []string
	// Concepts lists the canonical concepts the query matched, if any.
	Concepts []string
}

// Expander maps recognized theological concepts to parallel terms across
// languages. Words it does not recognize pass through unchanged.
type Expander struct {
	concepts map[string]conceptTerms
	// reverse maps each lowercased term to its canonical concept.
	reverse map[string]string
}

// NewExpander builds an expander over the built-in concept table.
func NewExpander() *Expander {
	return NewExpanderWith(theologicalConcepts)
}

// NewExpanderWith builds an expander over a caller-supplied concept table.
func NewExpanderWith(concepts map[string]conceptTerms) *Expander {
	reverse := make(map[string]string)
	for concept, langs := range concepts {
		for _, terms := range langs {
			for _, term := range terms {
				reverse[strings.ToLower(term)] = concept
			}
		}
	}
	return &Expander{concepts: concepts, reverse: reverse}
}

// Expand splits the query into words, replaces words that name a known
// concept with that concept's full multilingual term set, and keeps unknown
// words as-is. The original query leads the term list; duplicates are
// removed case-insensitively.
func (e *Expander) Expand(query string) Expansion {
	query = strings.TrimSpace(query)
	exp := Expansion{Original: query}
	if query == "" {
		return exp
	}

	words := wordSplitRe.Split(query, -1)
	// A multi-word query that names a single concept ("Kingdom of God")
	// should not be split into its words.
	if _, ok := e.reverse[strings.ToLower(query)]; ok {
		words = []string{query}
	}

	seen := map[string]bool{}
	add := func(term string) {
		key := strings.ToLower(term)
		if term == "" || seen[key] {
			return
		}
		seen[key] = true
		exp.Terms = append(exp.Terms, term)
	}

	add(query)
	matched := map[string]bool{}
	for _, word := range words {
		if word == "" {
			continue
		}
		concept, ok := e.reverse[strings.ToLower(word)]
		if !ok {
			add(word)
			continue
		}
		if !matched[concept] {
			matched[concept] = true
			exp.Concepts = append(exp.Concepts, concept)
		}
		for _, lang := range []string{"ko", "en", "de", "grc"} {
			for _, term := range e.concepts[concept][lang] {
				add(term)
			}
		}
	}
	return exp
}

// VectorTerms returns at most max expansion terms for the embedding leg.
// The full term set still drives the lexical leg; embedding every variant
// would multiply query latency for little recall gain.
func (e *Expander) VectorTerms(query string, max int) []string {
	terms := e.Expand(query).Terms
	if max > 0 && len(terms) > max {
		terms = terms[:max]
	}
	return terms
}
