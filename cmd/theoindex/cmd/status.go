package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/theolab/theoindex/internal/preflight"
	"github.com/theolab/theoindex/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var format string
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index contents and environment health",
		Long: `Show what is indexed and whether the environment is ready:
chunk and source counts, archive size, lemma index size, the active
embedder, and the pre-flight check results.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd, format, offline)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip network checks")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, format string, offline bool) error {
	logger := slog.Default()

	svc, err := openServices(ctx, offline, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	report := ui.StatusReport{Embedder: embedderInfo(svc.embedder)}

	if count, err := svc.store.Count(ctx); err == nil {
		report.ChunkCount = count
	}
	if sources, err := svc.store.Sources(ctx); err == nil {
		report.Sources = sources
	}
	if files, err := svc.archive.Files(); err == nil {
		report.ArchiveFiles = len(files)
	}
	if idx, err := svc.lemmas.Load(); err == nil {
		report.LemmaCount = len(idx.Entries)
	}

	checkOpts := []preflight.Option{}
	if offline {
		checkOpts = append(checkOpts, preflight.WithOffline())
	}
	checker := preflight.NewChecker(svc.cfg, checkOpts...)
	for _, r := range checker.RunAll(ctx) {
		report.Checks = append(report.Checks, ui.CheckResult{
			Name:   r.Name,
			OK:     r.Status == preflight.StatusPass,
			IsWarn: r.Status == preflight.StatusWarn,
			Detail: r.Message,
		})
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(statusJSON(report))
	}

	fmt.Fprint(cmd.OutOrStdout(), ui.RenderStatus(report, terminalStyles()))
	return nil
}

// statusJSON flattens the report for machine consumers.
func statusJSON(r ui.StatusReport) map[string]any {
	checks := make([]map[string]any, 0, len(r.Checks))
	for _, c := range r.Checks {
		checks = append(checks, map[string]any{
			"name":   c.Name,
			"ok":     c.OK,
			"warn":   c.IsWarn,
			"detail": c.Detail,
		})
	}
	return map[string]any{
		"chunks":        r.ChunkCount,
		"sources":       r.Sources,
		"archive_files": r.ArchiveFiles,
		"lemmas":        r.LemmaCount,
		"embedder": map[string]any{
			"model":      r.Embedder.Model,
			"dimensions": r.Embedder.Dimensions,
			"fallback":   r.Embedder.Fallback,
		},
		"checks": checks,
	}
}
