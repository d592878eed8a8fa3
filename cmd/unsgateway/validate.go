package main

import (
	"context"
	"fmt"
	"time"

	"github.com/illmade-knight/uns-gateway/pkg/gateway"
	"github.com/spf13/cobra"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var (
		configPath string
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the config and load the tag mapping without connecting to MQTT",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := gateway.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := opts.logger(cfg.LogLevel)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			tags, err := gateway.LoadMapping(ctx, cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config OK: %d tag mappings from %s\n", tags.Len(), cfg.Mapping.Source)
			for _, topic := range tags.Topics() {
				entry, _ := tags.Lookup(topic)
				fmt.Fprintf(out, "  %s -> %s\n", topic, entry.UNSTopic)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "gateway.yaml", "path to the gateway config file")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "time allowed to load the mapping")
	return cmd
}
