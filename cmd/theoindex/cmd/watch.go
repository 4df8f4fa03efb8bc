package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theolab/theoindex/internal/index"
	"github.com/theolab/theoindex/internal/ui"
	"github.com/theolab/theoindex/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the inbox and index new documents automatically",
		Long: `Watch the inbox directory and run the indexing pipeline whenever
documents are dropped in. Events are debounced so a slow multi-file
copy triggers a single run once the inbox settles.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, offline)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip Ollama)")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, offline bool) error {
	logger := slog.Default()

	svc, err := openServices(ctx, offline, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	debounce := 2 * time.Second
	if svc.cfg.Indexing.WatchDebounce != "" {
		if d, err := time.ParseDuration(svc.cfg.Indexing.WatchDebounce); err == nil && d > 0 {
			debounce = d
		}
	}

	w, err := watcher.NewInboxWatcher(watcher.Options{DebounceWindow: debounce}, logger)
	if err != nil {
		return err
	}

	orch := index.NewOrchestrator(index.Config{
		Store:    svc.store,
		Embedder: svc.embedder,
		Archive:  svc.archive,
		OCR:      newOCRClient(svc.cfg),
		Logger:   logger,
		LockTTL:  lockTTL(svc.cfg),
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %s (debounce %s). Ctrl+C to stop.\n",
		svc.cfg.Paths.Inbox, debounce)

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Start(ctx, svc.cfg.Paths.Inbox)
	}()
	defer func() { _ = w.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			return err
		case err := <-w.Errors():
			logger.Warn("watch_error", slog.String("error", err.Error()))
		case batch := <-w.Events():
			if !batchNeedsRun(batch) {
				continue
			}
			fmt.Fprintf(out, "Inbox changed (%d events), indexing...\n", len(batch))
			if err := runWatchedBatch(ctx, orch, svc, out); err != nil {
				logger.Error("watch_run_failed", slog.String("error", err.Error()))
				fmt.Fprintf(out, "Indexing failed: %v\n", err)
			}
		}
	}
}

// batchNeedsRun ignores batches that only contain deletions; removed
// inbox files were either indexed already or withdrawn by the user.
func batchNeedsRun(batch []watcher.FileEvent) bool {
	for _, ev := range batch {
		if ev.Operation != watcher.OpDelete {
			return true
		}
	}
	return false
}

func runWatchedBatch(ctx context.Context, orch *index.Orchestrator, svc *services, out io.Writer) error {
	renderer := ui.NewPlainRenderer(ui.NewConfig(out, ui.WithNoColor(noColor)))
	_ = renderer.Start(ctx)
	defer func() { _ = renderer.Stop() }()

	started := time.Now()
	events, err := orch.Run(ctx, svc.cfg.Paths.Inbox)
	if err != nil {
		return err
	}

	summary, errCount, warnCount := consumeEvents(events, renderer)

	if summary != nil && summary.ProcessedFiles > 0 {
		if _, err := svc.lemmas.Build(ctx, true); err != nil {
			slog.Warn("lemma index rebuild failed", slog.String("error", err.Error()))
		}
	}

	stats := ui.CompletionStats{
		Duration: time.Since(started),
		Errors:   errCount,
		Warnings: warnCount,
		Embedder: embedderInfo(svc.embedder),
	}
	if summary != nil {
		stats.Files = summary.ProcessedFiles
		stats.Chunks = summary.TotalChunks
	}
	renderer.Complete(stats)
	return nil
}
