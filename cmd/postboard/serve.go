package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/postboard/internal/api"
	"github.com/dshills/postboard/internal/mcp"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API until SIGINT or SIGTERM.

Examples:
  # Listen on the configured address
  postboard serve

  # Enable bulk sync and semantic search through a local model
  POSTBOARD_SYNC_TOKEN=secret POSTBOARD_EMBEDDING_PROVIDER=ollama postboard serve`,
	RunE: runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve read-only tools to AI assistants over stdio",
	Long: `Serve the MCP tools search_posts, get_feed, get_post, list_comments and
get_status on stdin/stdout. Logs go to stderr.`,
	RunE: runMCP,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.reportSchema(ctx)

	if !a.cfg.Sync.Token.IsSet() {
		a.logger.Info("sync token not set, bulk sync disabled")
	}

	srv, err := api.NewServer(api.Services{
		Store:    a.store,
		Posts:    a.posts,
		Comments: a.comments,
		Feed:     a.feed,
		Searcher: a.searcher,
	}, a.logger, &api.Config{
		Host:      a.cfg.Server.Host,
		Port:      a.cfg.Server.Port,
		SyncToken: a.cfg.Sync.Token.Value(),
	})
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down", zap.Duration("timeout", a.cfg.Server.ShutdownTimeout))
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.reportSchema(ctx)

	server, err := mcp.NewServer(mcp.Deps{
		Store:    a.store,
		Posts:    a.posts,
		Comments: a.comments,
		Feed:     a.feed,
		Searcher: a.searcher,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}

	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	a.logger.Info("mcp server stopped")
	return nil
}
