package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/tagbridge/internal/cli"
	"github.com/aretw0/tagbridge/pkg/runner"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bridge JSON-lines frames over stdin/stdout",
	Long: `Reads one command frame per line from stdin and writes one response frame
per line to stdout:

  {"callbackId":"1","command":"containerOpen","args":["GTM-XXXX"]}
  {"callbackId":"1","status":"success","value":{"containerId":"GTM-XXXX","sessionId":"..."}}

Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, lv, err := setup(cmd)
		if err != nil {
			return err
		}
		bridge, err := cli.NewBridge(cfg, cli.BridgeOptions{Logger: logger, LevelVar: lv})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r := runner.New(bridge.Dispatcher, cmd.OutOrStdout(),
			runner.WithLogger(logger),
			runner.WithMaxFrameSize(int(cfg.Server.MaxFrameBytes)),
			runner.WithMaxInputSize(cfg.Server.MaxInputBytes),
		)
		runErr := r.Run(ctx, cmd.InOrStdin())
		if errors.Is(runErr, context.Canceled) {
			runErr = nil
		}

		// A still pending open is answered with Cancelled during shutdown.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(runErr, bridge.Close(shutdownCtx))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
