package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/illmade-knight/uns-gateway/pkg/gateway"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the gateway until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := gateway.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := opts.logger(cfg.LogLevel)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := gateway.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}

			startErr := svc.Start(ctx)
			if startErr == nil {
				logger.Info().Str("http_port", svc.GetHTTPPort()).Msg("UNS gateway running.")
				<-ctx.Done()
				logger.Info().Msg("Shutdown signal received.")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.ShutdownTimeout)
			defer cancel()
			shutdownErr := svc.Shutdown(shutdownCtx)
			if startErr != nil && errors.Is(startErr, context.Canceled) {
				// Interrupted while still connecting.
				return shutdownErr
			}
			return errors.Join(startErr, shutdownErr)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "gateway.yaml", "path to the gateway config file")
	return cmd
}
