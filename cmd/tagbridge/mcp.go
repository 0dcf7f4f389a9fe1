package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/aretw0/tagbridge/internal/cli"
	"github.com/aretw0/tagbridge/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes every bridge command as an MCP tool over stdio. Each tool takes a
single "args" array with the command's positional arguments. The current
session snapshot is available as the tagbridge://session resource.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, lv, err := setup(cmd)
		if err != nil {
			return err
		}
		bridge, err := cli.NewBridge(cfg, cli.BridgeOptions{Logger: logger, LevelVar: lv})
		if err != nil {
			return err
		}

		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		logger.Info("Starting tagbridge MCP server (stdio)", "backend", cfg.SDK.Backend)

		srv := mcp.NewServer(bridge.Dispatcher,
			mcp.WithLogger(logger),
			mcp.WithMaxInputSize(cfg.Server.MaxInputBytes),
		)
		serveErr := srv.ServeStdio()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(serveErr, bridge.Close(shutdownCtx))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
