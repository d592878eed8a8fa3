// Command unsgateway bridges legacy PLC topics into a Unified Namespace.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel string
	pretty   bool
}

// logger builds the process logger. An explicit --log-level wins over fallback.
func (o *rootOptions) logger(fallback string) (zerolog.Logger, error) {
	levelName := o.logLevel
	if levelName == "" {
		levelName = fallback
	}
	if levelName == "" {
		levelName = "info"
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", levelName, err)
	}

	var logger zerolog.Logger
	if o.pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "unsgateway <command>",
		Short:         "Contextualizing gateway from legacy MQTT topics to a Unified Namespace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides log_level in the config)")
	rootCmd.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "human-friendly console logs")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newSimulateCmd(opts),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
