package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theolab/theoindex/internal/search"
	"github.com/theolab/theoindex/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit   int
	source  string
	docType string
	tags    []string
	format  string
	offline bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed library",
		Long: `Search the indexed library with dual vector and lexical retrieval.

The query is expanded with theological synonyms, both legs run over the
vector store and the JSON archive, and hits found by both are boosted.

Examples:
  theoindex search "Rechtfertigung aus Glauben"
  theoindex search "grace" --source KD --limit 3
  theoindex search "creation" --type commentary --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "Filter by source abbreviation (e.g. KD, TRE)")
	cmd.Flags().StringVarP(&opts.docType, "type", "t", "", "Filter by document type: dogmatics, dictionary, commentary, philosophy, general")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "Filter by tag (repeatable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use static embeddings (skip Ollama)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	logger := slog.Default()
	logger.Info("search_started", slog.String("query", query), slog.Int("limit", opts.limit))

	svc, err := openServices(ctx, opts.offline, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := requireIndex(ctx, svc); err != nil {
		return err
	}

	limit := opts.limit
	if limit <= 0 {
		limit = svc.cfg.Search.MaxResults
	}

	engine := search.NewEngine(svc.store, svc.embedder, svc.archive, logger,
		search.WithMaxTerms(svc.cfg.Search.MaxVectorTerms),
		search.WithVectorBonus(svc.cfg.Search.VectorBonus),
		search.WithHybridBonus(svc.cfg.Search.HybridBonus),
	)

	results, err := engine.Search(ctx, query, limit, search.Filters{
		Source:  opts.source,
		DocType: opts.docType,
		Tags:    opts.tags,
	})
	if err != nil {
		return err
	}

	logger.Info("search_complete", slog.Int("results", len(results)))

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	fmt.Fprint(cmd.OutOrStdout(), ui.RenderSearchResults(query, results, terminalStyles()))
	return nil
}
