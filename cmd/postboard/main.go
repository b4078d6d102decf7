// Package main implements the postboard server and its maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/postboard/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"

	// configPath is the YAML config file; a missing file means defaults
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "postboard",
	Short: "Content platform backend with semantic search and threaded comments",
	Long: `postboard serves posts, a cursor-paginated feed, threaded comments and
semantic search over HTTP, and exposes read access to AI assistants over MCP.

Configuration is read from a YAML file and POSTBOARD_* environment variables,
e.g. POSTBOARD_SERVER_HTTP_PORT=9000 or POSTBOARD_EMBEDDING_PROVIDER=ollama.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.postboard/config.yaml)")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "postboard\n")
		fmt.Fprintf(out, "Version: %s\n", version)
		fmt.Fprintf(out, "Build Time: %s\n", buildTime)
		fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
		fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
		fmt.Fprintf(out, "Vector Extension: %v\n", storage.VectorExtensionAvailable)
	},
}
