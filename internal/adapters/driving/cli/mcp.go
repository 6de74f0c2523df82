package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logos-health/logos/internal/adapters/driving/mcp"
	"github.com/logos-health/logos/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can query the
knowledge base and request confidence-checked analyses.

By default, the server communicates over stdio using JSON-RPC.
Use --port to serve HTTP instead; Prometheus metrics are then
available at /metrics on the same port.

Examples:
  # Stdio mode (default)
  logos mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  logos mcp serve --port 8080`,
	RunE: runMCPServe,
}

var mcpReconcile bool

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().BoolVar(&mcpReconcile, "reconcile", true, "reconcile interrupted ingestions in the background")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ctx := commandContext(cmd)
	p, err := requirePipeline(ctx)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Augmentation: p.Augmentation,
		Generation:   p.Generation,
		Ingestion:    p.Ingestion,
		Confidence:   confidenceValidator,
		Document:     documentService,
	})
	if err != nil {
		return err
	}

	if mcpReconcile && p.Scheduler != nil {
		go func() {
			if err := p.Scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("scheduler stopped: %v", err)
			}
		}()
		defer func() { _ = p.Scheduler.Stop() }()
	}

	if port > 0 {
		if p.MetricsHandler != nil {
			server.Handle("/metrics", p.MetricsHandler)
		}
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
