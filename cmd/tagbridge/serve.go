package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/tagbridge/internal/cli"
	httpAdapter "github.com/aretw0/tagbridge/pkg/adapters/http"
	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and websocket bridge",
	Long: `Serves the bridge over HTTP:

  POST /v1/commands/{command}  dispatch one command
  GET  /v1/bridge              websocket, one JSON frame per message
  GET  /v1/events              server-sent lifecycle events
  GET  /v1/session             current session snapshot
  GET  /metrics                prometheus metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, lv, err := setup(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}

		streams := httpAdapter.NewStreamManager(logger)
		bridge, err := cli.NewBridge(cfg, cli.BridgeOptions{
			Logger:   logger,
			LevelVar: lv,
			Hooks:    []domain.LifecycleHooks{streams.Hooks()},
		})
		if err != nil {
			return err
		}

		server := httpAdapter.NewServer(bridge.Dispatcher,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithStreams(streams),
			httpAdapter.WithMaxFrameSize(cfg.Server.MaxFrameBytes),
			httpAdapter.WithMaxInputSize(cfg.Server.MaxInputBytes),
			httpAdapter.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
			httpAdapter.WithMetricsHandler(promhttp.HandlerFor(bridge.Registry, promhttp.HandlerOpts{})),
		)
		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			logger.Info("Starting tagbridge server", "addr", srv.Addr, "backend", cfg.SDK.Backend)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			logger.Info("Shutting down", "timeout", cfg.Server.ShutdownTimeout)

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			server.Close()
			var errs []error
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("graceful shutdown: %w", err))
				if err := srv.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close server: %w", err))
				}
			}
			if err := bridge.Close(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
			logger.Info("tagbridge server stopped")
			return errors.Join(errs...)
		})

		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
