package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/tagbridge/internal/config"
	"github.com/aretw0/tagbridge/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tagbridge",
	Short: "tagbridge relays analytics commands to a tag manager session",
	Long: `tagbridge owns one analytics / tag manager session and answers named commands
(containerOpen, get, set, dataLayerPush, send, ...) over stdio, HTTP, websocket or MCP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")
}

// setup loads the configuration and installs the process logger. The
// returned LevelVar lets setLogLevel retune logging at runtime.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, *slog.LevelVar, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	lv := new(slog.LevelVar)
	lv.Set(level)
	logger := logging.New(logging.Options{Level: lv, Format: format})
	slog.SetDefault(logger)
	return cfg, logger, lv, nil
}
