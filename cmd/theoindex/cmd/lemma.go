package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theolab/theoindex/internal/lemma"
)

func newLemmaCmd() *cobra.Command {
	var source string
	var category string

	cmd := &cobra.Command{
		Use:   "lemma <headword>",
		Short: "Look up a dictionary headword across the library",
		Long: `Look up a dictionary headword (lemma) in the archive-wide lemma index.

The index maps every headword detected in dictionary volumes to the
sources, volumes, and printed pages where its article appears.

Examples:
  theoindex lemma Gnade
  theoindex lemma Rechtfertigung --source TRE
  theoindex lemma build`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := strings.Join(args, " ")
			return runLemmaLookup(cmd.Context(), cmd, term, source, category)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Filter by source abbreviation")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Filter by article category")

	cmd.AddCommand(newLemmaBuildCmd())

	return cmd
}

func newLemmaBuildCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build or refresh the lemma index from the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLemmaBuild(cmd.Context(), cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild from scratch, ignoring file modification times")

	return cmd
}

func runLemmaLookup(ctx context.Context, cmd *cobra.Command, term, source, category string) error {
	svc, err := openServices(ctx, true, slog.Default())
	if err != nil {
		return err
	}
	defer svc.Close()

	idx, err := svc.lemmas.Load()
	if err != nil {
		return err
	}
	if len(idx.Entries) == 0 {
		return fmt.Errorf("lemma index is empty. Run 'theoindex lemma build' first")
	}

	normalized := lemma.Normalize(term)
	entries := idx.Lookup(normalized, source, category)

	out := cmd.OutOrStdout()
	styles := terminalStyles()
	if len(entries) == 0 {
		fmt.Fprintln(out, styles.Dim.Render(fmt.Sprintf("%q is not in the lemma index.", term)))
		return nil
	}

	fmt.Fprintln(out, styles.Header.Render(normalized))
	for _, e := range entries {
		fmt.Fprintf(out, "  %s\n", styles.Citation.Render(lemmaCitation(e)))
		if len(e.Category) > 0 {
			fmt.Fprintf(out, "    %s\n", styles.Dim.Render(strings.Join(e.Category, ", ")))
		}
		if len(e.Related) > 0 {
			fmt.Fprintf(out, "    %s %s\n",
				styles.Label.Render("Related:"), strings.Join(e.Related, ", "))
		}
	}
	return nil
}

func runLemmaBuild(ctx context.Context, cmd *cobra.Command, force bool) error {
	logger := slog.Default()
	svc, err := openServices(ctx, true, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	idx, err := svc.lemmas.Build(ctx, force)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Lemma index built: %d headwords from %d sources\n",
		len(idx.Entries), len(idx.BySource))
	return nil
}

// lemmaCitation renders one index entry as a citation line.
func lemmaCitation(e lemma.Entry) string {
	name := e.Source
	if name == "" {
		name = e.File
	}
	parts := []string{name}
	if e.Volume != nil {
		parts = append(parts, fmt.Sprintf("Bd. %d", *e.Volume))
	}
	if e.Page != nil {
		parts = append(parts, fmt.Sprintf("S. %d", *e.Page))
	}
	return strings.Join(parts, ", ")
}
