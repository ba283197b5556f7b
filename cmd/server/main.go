package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/takahara/redmine-issues-mcp/internal/api"
	"github.com/takahara/redmine-issues-mcp/internal/mcp"
)

var version = "1.0.0"

// Flags shared by both serving modes.
var (
	redmineURL string
	port       int
	logLevel   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "redmine-issues-mcp",
		Short:   "Redmine issue gateway for AI agents (MCP and REST)",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: parseLogLevel(logLevel),
			})))
		},
	}

	root.PersistentFlags().StringVar(&redmineURL, "redmine-url", os.Getenv("REDMINE_URL"), "Redmine server URL")
	root.PersistentFlags().IntVar(&port, "port", 8080, "Listen port for the SSE and REST modes")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio or SSE",
		RunE:  runMCP,
	}
	mcpCmd.Flags().Bool("sse", false, "Serve SSE on --port instead of stdio")

	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Serve the REST API",
		Long:  "Serve the REST API rendering issues as XML, with swagger UI under /docs",
		RunE:  runAPI,
	}

	root.AddCommand(mcpCmd, apiCmd)
	return root
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	if redmineURL == "" {
		return fmt.Errorf("REDMINE_URL is required (set via --redmine-url or REDMINE_URL env var)")
	}

	sseMode, _ := cmd.Flags().GetBool("sse")
	apiKey := os.Getenv("REDMINE_API_KEY")

	// SSE clients carry their own key per connection; stdio has exactly one.
	if !sseMode && apiKey == "" {
		return fmt.Errorf("REDMINE_API_KEY is required for stdio mode (set via REDMINE_API_KEY env var)")
	}

	return mcp.NewServer(mcp.Config{
		RedmineURL:    redmineURL,
		RedmineAPIKey: apiKey,
		Port:          port,
		SSEMode:       sseMode,
	}).Run()
}

func runAPI(cmd *cobra.Command, args []string) error {
	if redmineURL == "" {
		return fmt.Errorf("REDMINE_URL is required (set via --redmine-url or REDMINE_URL env var)")
	}

	return api.NewServer(api.Config{
		RedmineURL: redmineURL,
		Port:       port,
	}).Run()
}
