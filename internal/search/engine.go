package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/theolab/theoindex/internal/archive"
	"github.com/theolab/theoindex/internal/embed"
	pipeerr "github.com/theolab/theoindex/internal/errors"
	"github.com/theolab/theoindex/internal/meta"
	"github.com/theolab/theoindex/internal/store"
)

// Result methods. A hit found by both legs is "hybrid" and outranks hits
// found by only one.
const (
	MethodVector = "vector"
	MethodJSON   = "json"
	MethodHybrid = "hybrid"
)

const (
	// DefaultMaxVectorTerms caps how many expansion terms get embedded.
	DefaultMaxVectorTerms = 3

	// DefaultResults when the caller asks for none.
	DefaultResults = 10

	// rankDecay converts a vector hit's rank into a score: 1.0 - rank*decay.
	rankDecay = 0.05

	// dedupPrefixRunes is how much leading text identifies a chunk across
	// the two legs.
	dedupPrefixRunes = 100

	defaultVectorBonus = 0.2
	defaultHybridBonus = 0.3
)

// Result is one ranked search hit.
type Result struct {
	Content  string
	Source   string
	Author   string
	DocType  string
	Page     *int
	Score    float64
	Method   string
	Metadata meta.ChunkMeta
}

// Filters narrows a search. Zero values match everything.
type Filters struct {
	// Source matches by case-insensitive substring ("TRE", "barth").
	Source string
	// DocType matches exactly (dogmatics, dictionary, commentary, general).
	DocType string
	// Tags match when any filter tag is a substring of any chunk tag.
	Tags []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxTerms caps the expansion terms sent through the embedder.
func WithMaxTerms(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTerms = n
		}
	}
}

// WithVectorBonus sets the rerank bonus for vector-only hits.
func WithVectorBonus(b float64) Option {
	return func(e *Engine) { e.vectorBonus = b }
}

// WithHybridBonus sets the rerank bonus for hits found by both legs.
func WithHybridBonus(b float64) Option {
	return func(e *Engine) { e.hybridBonus = b }
}

// WithExpander replaces the built-in concept table.
func WithExpander(x *Expander) Option {
	return func(e *Engine) {
		if x != nil {
			e.expander = x
		}
	}
}

// Engine runs hybrid search: a semantic leg over the vector store and a
// lexical leg over the JSON archive, both driven by the same expanded term
// set, merged with a bonus for hits both legs agree on. Vector search alone
// misses exact rare-term matches; the lexical scan alone misses paraphrase.
type Engine struct {
	store    store.VectorStore
	embedder embed.Embedder
	archive  *archive.Store
	expander *Expander
	logger   *slog.Logger

	maxTerms    int
	vectorBonus float64
	hybridBonus float64
}

// NewEngine wires a search engine over already-open collaborators. The
// engine does not own them; the caller closes them.
func NewEngine(vs store.VectorStore, emb embed.Embedder, arch *archive.Store, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:       vs,
		embedder:    emb,
		archive:     arch,
		expander:    NewExpander(),
		logger:      logger,
		maxTerms:    DefaultMaxVectorTerms,
		vectorBonus: defaultVectorBonus,
		hybridBonus: defaultHybridBonus,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search expands the query, runs both legs concurrently, merges, filters,
// reranks, and returns at most n results. A single failing leg degrades the
// search instead of failing it; only context cancellation aborts.
func (e *Engine) Search(ctx context.Context, query string, n int, f Filters) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pipeerr.New(pipeerr.ErrCodeInvalidQuery, "empty search query", nil)
	}
	if n <= 0 {
		n = DefaultResults
	}

	exp := e.expander.Expand(query)
	e.logger.Debug("query_expanded",
		slog.String("query", query),
		slog.Int("terms", len(exp.Terms)),
		slog.Any("concepts", exp.Concepts))

	var vectorHits, lexicalHits []Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorHits, err = e.vectorLeg(gctx, exp.Terms, n*2)
		return err
	})
	g.Go(func() error {
		var err error
		lexicalHits, err = e.lexicalLeg(gctx, exp.Terms, n*2)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := mergeLegs(vectorHits, lexicalHits)
	filtered := applyFilters(merged, f)
	e.rerank(filtered)

	if len(filtered) > n {
		filtered = filtered[:n]
	}
	return filtered, nil
}

// vectorLeg embeds up to maxTerms expansion terms and queries the vector
// store once per term. Scores are rank-based so terms contribute equally.
func (e *Engine) vectorLeg(ctx context.Context, terms []string, n int) ([]Result, error) {
	if len(terms) > e.maxTerms {
		terms = terms[:e.maxTerms]
	}
	if len(terms) == 0 {
		return nil, nil
	}

	vectors, err := e.embedder.EmbedBatch(ctx, terms)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("vector_leg_failed", slog.String("error", err.Error()))
		return nil, nil
	}

	perTerm := n/len(vectors) + 1
	var results []Result
	for _, vec := range vectors {
		hits, err := e.store.Query(ctx, vec, perTerm)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn("vector_query_failed", slog.String("error", err.Error()))
			continue
		}
		for j, hit := range hits {
			md := hit.Metadata
			results = append(results, Result{
				Content:  hit.Text,
				Source:   md.Source,
				Author:   md.Author,
				DocType:  string(md.DocType),
				Page:     md.PageNumber,
				Score:    1.0 - float64(j)*rankDecay,
				Method:   MethodVector,
				Metadata: md,
			})
		}
	}
	return results, nil
}

// lexicalLeg scans the JSON archive for the full expanded term set.
func (e *Engine) lexicalLeg(ctx context.Context, terms []string, n int) ([]Result, error) {
	matches, err := e.archive.Scan(ctx, terms, n)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("lexical_leg_failed", slog.String("error", err.Error()))
		return nil, nil
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		md := m.Metadata
		results = append(results, Result{
			Content:  m.Content,
			Source:   md.Source,
			Author:   md.Author,
			DocType:  string(md.DocType),
			Page:     md.PageNumber,
			Score:    m.Score,
			Method:   MethodJSON,
			Metadata: md,
		})
	}
	return results, nil
}

// mergeLegs deduplicates by leading-text key, vector hits first. A lexical
// hit whose text a vector hit already produced upgrades that hit to hybrid;
// a new lexical hit from a source the vector leg also surfaced is likewise
// tagged hybrid.
func mergeLegs(vector, lexical []Result) []Result {
	merged := make([]Result, 0, len(vector)+len(lexical))
	byKey := make(map[string]int)
	vectorSources := make(map[string]bool)

	for _, r := range vector {
		key := dedupKey(r.Content)
		if _, ok := byKey[key]; ok {
			continue
		}
		byKey[key] = len(merged)
		vectorSources[r.Source] = true
		merged = append(merged, r)
	}

	for _, r := range lexical {
		key := dedupKey(r.Content)
		if i, ok := byKey[key]; ok {
			merged[i].Method = MethodHybrid
			continue
		}
		byKey[key] = len(merged)
		if vectorSources[r.Source] {
			r.Method = MethodHybrid
		}
		merged = append(merged, r)
	}
	return merged
}

func dedupKey(content string) string {
	runes := []rune(content)
	if len(runes) > dedupPrefixRunes {
		runes = runes[:dedupPrefixRunes]
	}
	return string(runes)
}

func applyFilters(results []Result, f Filters) []Result {
	if f.Source == "" && f.DocType == "" && len(f.Tags) == 0 {
		return results
	}

	source := strings.ToLower(f.Source)
	filtered := results[:0:0]
	for _, r := range results {
		if source != "" && !strings.Contains(strings.ToLower(r.Source), source) {
			continue
		}
		if f.DocType != "" && r.DocType != f.DocType {
			continue
		}
		if len(f.Tags) > 0 && !matchesTags(r.Metadata.Tags, f.Tags) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func matchesTags(have, want []string) bool {
	for _, w := range want {
		w = strings.ToLower(w)
		for _, h := range have {
			if strings.Contains(strings.ToLower(h), w) {
				return true
			}
		}
	}
	return false
}

// rerank applies method bonuses and sorts descending. Stable so equal
// scores keep merge order (vector hits ahead of lexical ones).
func (e *Engine) rerank(results []Result) {
	for i := range results {
		switch results[i].Method {
		case MethodVector:
			results[i].Score += e.vectorBonus
		case MethodHybrid:
			results[i].Score += e.hybridBonus
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}
