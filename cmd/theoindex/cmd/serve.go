package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/theolab/theoindex/internal/mcp"
	"github.com/theolab/theoindex/internal/search"
)

func newServeCmd() *cobra.Command {
	var transport string
	var offline bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server exposing the library to AI assistants.

Tools: theo_search (hybrid search with citations), lemma_lookup
(dictionary headword lookup), index_status (index health).
Archived documents are published as resources.

The stdio transport reserves stdout for JSON-RPC; all logging goes to
the log file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, transport, offline)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport protocol (stdio)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip Ollama)")

	return cmd
}

func runServe(ctx context.Context, transport string, offline bool) error {
	// stdout belongs to the protocol from here on.
	logger := slog.Default()

	svc, err := openServices(ctx, offline, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	if transport == "" {
		transport = svc.cfg.Server.Transport
	}

	engine := search.NewEngine(svc.store, svc.embedder, svc.archive, logger,
		search.WithMaxTerms(svc.cfg.Search.MaxVectorTerms),
		search.WithVectorBonus(svc.cfg.Search.VectorBonus),
		search.WithHybridBonus(svc.cfg.Search.HybridBonus),
	)

	server, err := mcp.NewServer(engine, svc.store, svc.archive, svc.lemmas,
		svc.embedder, svc.cfg.Search.MaxResults, logger)
	if err != nil {
		return err
	}

	logger.Info("mcp_server_starting", slog.String("transport", transport))
	return server.Serve(ctx, transport)
}
