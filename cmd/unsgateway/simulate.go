package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/illmade-knight/uns-gateway/pkg/mqttconverter"
	"github.com/illmade-knight/uns-gateway/pkg/simulator"
	"github.com/spf13/cobra"
)

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var (
		brokerURL string
		interval  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Publish random legacy PLC readings until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := opts.logger("info")
			if err != nil {
				return err
			}

			mqttCfg := mqttconverter.LoadMQTTClientConfigFromEnv()
			if brokerURL != "" {
				mqttCfg.BrokerURL = brokerURL
			}
			if mqttCfg.BrokerURL == "" {
				mqttCfg.BrokerURL = "tcp://localhost:1883"
			}
			mqttCfg.ClientIDPrefix = "legacy-plc-simulator-"
			mqttCfg.AllowPublicBroker = mqttCfg.Username == ""

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conn, err := mqttconverter.NewConnection(mqttCfg, logger)
			if err != nil {
				return err
			}
			if err := conn.Connect(ctx); err != nil {
				return err
			}
			defer conn.Disconnect()

			sim, err := simulator.New(simulator.DefaultTags, conn, logger, simulator.WithInterval(interval))
			if err != nil {
				return err
			}
			return sim.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&brokerURL, "broker", "", "MQTT broker URL (default $MQTT_BROKER_URL or tcp://localhost:1883)")
	cmd.Flags().DurationVar(&interval, "interval", simulator.DefaultInterval, "pause between rounds of readings")
	return cmd
}
