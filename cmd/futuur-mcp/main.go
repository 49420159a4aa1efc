// futuur-mcp serves the Futuur prediction-market API as MCP tools.
//
// Usage:
//
//	futuur-mcp serve                 # stdio transport for local agents
//	futuur-mcp serve --transport http --addr :8080
//	futuur-mcp sign --method GET --endpoint bets/ --param active=true
//	futuur-mcp history --limit 20
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/futuur-mcp/internal/app"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "futuur-mcp",
		Short:         "Futuur prediction-market tools over MCP",
		Long:          "futuur-mcp signs and sends Futuur API requests on behalf of AI agents, exposed as MCP tools over stdio or HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("FUTUUR_CONFIG"), "config file (YAML or TOML)")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(toolsCmd(&configPath))
	rootCmd.AddCommand(signCmd(&configPath))
	rootCmd.AddCommand(tokenCmd(&configPath))
	rootCmd.AddCommand(historyCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	var transport, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long:  "Run the MCP server. SIGHUP reloads credentials from the config file and environment; SIGINT or SIGTERM shuts down.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if transport != "" {
				cfg.Server.Transport = transport
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// stdout carries the protocol in stdio mode, so logs always go to stderr.
			logger := app.NewLogger(cfg.Log, os.Stderr)
			slog.SetDefault(logger)
			a, err := app.New(cmd.Context(), cfg, app.Options{
				ConfigPath: *configPath,
				Version:    version,
				Logger:     logger,
			})
			if err != nil {
				return err
			}
			defer a.Close()

			logger.Info("futuur-mcp starting",
				"version", version,
				"transport", cfg.Server.Transport,
				"base_url", cfg.API.BaseURL,
				"public_prefixes", a.Classifier.Prefixes(),
				"journal", cfg.Journal.Path != "",
			)
			return a.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "transport: stdio or http (overrides server.transport)")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides server.addr)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "futuur-mcp %s\n", version)
		},
	}
}
