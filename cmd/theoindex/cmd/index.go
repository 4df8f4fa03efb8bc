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
	"github.com/theolab/theoindex/internal/preflight"
	"github.com/theolab/theoindex/internal/ui"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	noTUI     bool
	offline   bool
	reindex   bool
	skipCheck bool
	progress  bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index documents from the inbox",
		Long: `Index every document waiting in the inbox directory.

Each file is extracted page by page, chunked by document type, embedded,
and upserted into the vector store. The full text lands in the JSON
archive and the source file is removed from the inbox.

Use --reindex to rebuild the vector store from the archive instead of
the inbox, for example after changing the embedding model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Ctrl+C must cancel mid-batch embedding cleanly.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use static embeddings (skip Ollama)")
	cmd.Flags().BoolVar(&opts.reindex, "reindex", false, "Rebuild the vector store from the JSON archive")
	cmd.Flags().BoolVar(&opts.skipCheck, "skip-check", false, "Skip pre-flight system checks")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Emit machine-readable [PROGRESS] lines on stdout")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	logger := slog.Default()
	started := time.Now()

	svc, err := openServices(ctx, opts.offline, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	if !opts.skipCheck && preflight.NeedsCheck(svc.cfg.Paths.Data) {
		checkOpts := []preflight.Option{preflight.WithOutput(io.Discard)}
		if opts.offline {
			checkOpts = append(checkOpts, preflight.WithOffline())
		}
		checker := preflight.NewChecker(svc.cfg, checkOpts...)
		results := checker.RunAll(ctx)
		if preflight.HasCriticalFailures(results) {
			return fmt.Errorf("system check failed. Run 'theoindex status' for details")
		}
		if err := preflight.MarkPassed(svc.cfg.Paths.Data); err != nil {
			logger.Debug("preflight marker write failed", slog.String("error", err.Error()))
		}
	}

	// With --progress stdout carries the line protocol for host UIs, so
	// the interactive renderer is silenced.
	rendererOut := cmd.OutOrStdout()
	forcePlain := opts.noTUI
	var progressOut io.Writer
	if opts.progress {
		progressOut = cmd.OutOrStdout()
		rendererOut = io.Discard
		forcePlain = true
	}

	renderer := ui.NewRenderer(ui.NewConfig(rendererOut,
		ui.WithForcePlain(forcePlain),
		ui.WithNoColor(noColor),
		ui.WithInboxDir(svc.cfg.Paths.Inbox),
	))
	if err := renderer.Start(ctx); err != nil {
		logger.Warn("failed to start progress renderer", slog.String("error", err.Error()))
	}
	defer func() { _ = renderer.Stop() }()

	orch := index.NewOrchestrator(index.Config{
		Store:    svc.store,
		Embedder: svc.embedder,
		Archive:  svc.archive,
		OCR:      newOCRClient(svc.cfg),
		Logger:   logger,
		Progress: progressOut,
		LockTTL:  lockTTL(svc.cfg),
	})

	var events <-chan index.Event
	if opts.reindex {
		events, err = orch.Reindex(ctx)
	} else {
		events, err = orch.Run(ctx, svc.cfg.Paths.Inbox)
	}
	if err != nil {
		return err
	}

	summary, errCount, warnCount := consumeEvents(events, renderer)

	// Lemma entries may have changed; keep the sidecar index current.
	if summary != nil && summary.ProcessedFiles > 0 {
		if _, err := svc.lemmas.Build(ctx, true); err != nil {
			logger.Warn("lemma index rebuild failed", slog.String("error", err.Error()))
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

	if err := ctx.Err(); err != nil {
		return err
	}
	if errCount > 0 {
		return fmt.Errorf("%d file(s) failed. See %s", errCount, logFileHint())
	}
	return nil
}

// consumeEvents drains the pipeline event stream into the renderer and
// returns the terminal summary plus error and warning counts.
func consumeEvents(events <-chan index.Event, renderer ui.Renderer) (*index.Summary, int, int) {
	var summary *index.Summary
	var processed, chunks, errCount, warnCount int

	for ev := range events {
		switch ev.Status {
		case index.StatusError:
			errCount++
			renderer.AddError(ui.ErrorEvent{File: ev.File, Err: ev.Err})
		case index.StatusWarning:
			warnCount++
			renderer.AddError(ui.ErrorEvent{
				File:   ev.File,
				Err:    fmt.Errorf("%s", ev.Message),
				IsWarn: true,
			})
		case index.StatusCompleted:
			processed++
			chunks += ev.Chunks
			renderer.UpdateProgress(ui.ProgressEvent{
				File:      ev.File,
				Processed: processed,
				Percent:   ev.Progress,
				Message:   ev.Message,
				Chunks:    chunks,
			})
		case index.StatusDone:
			summary = ev.Summary
		default:
			renderer.UpdateProgress(ui.ProgressEvent{
				File:      ev.File,
				Processed: processed,
				Percent:   ev.Progress,
				Message:   ev.Message,
				Chunks:    chunks,
			})
		}
	}
	return summary, errCount, warnCount
}
