package mqttconverter

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Connection owns one Paho client and the broker session it holds. Consumers
// register on-connect hooks to (re)subscribe, and publishers share the same
// session, so the connection must outlive both.
type Connection struct {
	client mqtt.Client
	cfg    *MQTTClientConfig
	logger zerolog.Logger

	mu        sync.Mutex
	onConnect []func(mqtt.Client)
	onLost    []func(error)
}

// NewConnection creates a Connection with a Paho client built from cfg. It does
// not connect until Connect is called.
func NewConnection(cfg *MQTTClientConfig, logger zerolog.Logger) (*Connection, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	c := newConnection(cfg, logger)
	opts, err := c.createMqttOptions()
	if err != nil {
		return nil, err
	}
	c.client = mqtt.NewClient(opts)
	return c, nil
}

// NewConnectionWithClient wraps an existing client. The client's options must
// route its on-connect and connection-lost events to ConnectHandler and
// ConnectionLostHandler for hooks to fire.
func NewConnectionWithClient(client mqtt.Client, cfg *MQTTClientConfig, logger zerolog.Logger) (*Connection, error) {
	if client == nil {
		return nil, fmt.Errorf("mqtt client cannot be nil")
	}
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	c := newConnection(cfg, logger)
	c.client = client
	return c, nil
}

func newConnection(cfg *MQTTClientConfig, logger zerolog.Logger) *Connection {
	return &Connection{
		cfg:    cfg,
		logger: logger.With().Str("component", "MqttConnection").Str("broker", cfg.BrokerURL).Logger(),
	}
}

func checkConfig(cfg *MQTTClientConfig) error {
	if cfg == nil || cfg.BrokerURL == "" {
		return fmt.Errorf("MQTT broker URL is required")
	}
	if cfg.Username == "" && !cfg.AllowPublicBroker {
		return fmt.Errorf("MQTT username is required unless allow_public_broker is set")
	}
	if cfg.QoS > 2 {
		return fmt.Errorf("invalid MQTT QoS %d", cfg.QoS)
	}
	return nil
}

// OnConnect registers a hook that runs every time the session is (re)established.
// If the connection is already up the hook also runs immediately.
func (c *Connection) OnConnect(fn func(mqtt.Client)) {
	c.mu.Lock()
	c.onConnect = append(c.onConnect, fn)
	c.mu.Unlock()
	if c.client.IsConnectionOpen() {
		fn(c.client)
	}
}

// OnConnectionLost registers a hook that runs when the session drops.
func (c *Connection) OnConnectionLost(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLost = append(c.onLost, fn)
}

// ConnectHandler is the Paho on-connect callback of this connection.
func (c *Connection) ConnectHandler() mqtt.OnConnectHandler {
	return func(client mqtt.Client) {
		c.logger.Info().Msg("Paho client connected to MQTT broker.")
		c.mu.Lock()
		hooks := append([]func(mqtt.Client){}, c.onConnect...)
		c.mu.Unlock()
		for _, fn := range hooks {
			fn(client)
		}
	}
}

// ConnectionLostHandler is the Paho connection-lost callback of this connection.
func (c *Connection) ConnectionLostHandler() mqtt.ConnectionLostHandler {
	return func(_ mqtt.Client, err error) {
		c.logger.Error().Err(err).Msg("Paho client lost MQTT connection.")
		c.mu.Lock()
		hooks := append([]func(error){}, c.onLost...)
		c.mu.Unlock()
		for _, fn := range hooks {
			fn(err)
		}
	}
}

// Connect establishes the session. With ConnectRetry it waits, retrying in the
// background, until the broker accepts or ctx is done; otherwise a single
// attempt bounded by ConnectTimeout decides.
func (c *Connection) Connect(ctx context.Context) error {
	if c.client.IsConnected() {
		return nil
	}
	c.logger.Info().Msg("Attempting to connect to MQTT broker...")
	token := c.client.Connect()

	var timeout <-chan time.Time
	if !c.cfg.ConnectRetry && c.cfg.ConnectTimeout > 0 {
		timer := time.NewTimer(c.cfg.ConnectTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-token.Done():
	case <-timeout:
		return fmt.Errorf("timed out connecting to MQTT broker %s after %s", c.cfg.BrokerURL, c.cfg.ConnectTimeout)
	case <-ctx.Done():
		return fmt.Errorf("connection to MQTT broker %s abandoned: %w", c.cfg.BrokerURL, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", c.cfg.BrokerURL, err)
	}
	c.logger.Info().Msg("Connection to MQTT broker established.")
	return nil
}

// IsConnected reports whether the session is currently up.
func (c *Connection) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Publish sends payload to topic and waits for the broker acknowledgement
// (for QoS > 0), PublishTimeout or ctx, whichever comes first.
func (c *Connection) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	token := c.client.Publish(topic, c.cfg.QoS, retain, payload)
	if err := c.wait(ctx, token, c.cfg.PublishTimeout); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe subscribes to every topic in one request.
func (c *Connection) Subscribe(ctx context.Context, topics []string, handler mqtt.MessageHandler) error {
	filters := make(map[string]byte, len(topics))
	for _, t := range topics {
		filters[t] = c.cfg.QoS
	}
	token := c.client.SubscribeMultiple(filters, handler)
	if err := c.wait(ctx, token, c.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("subscribe to %d topics: %w", len(topics), err)
	}
	return nil
}

// Unsubscribe removes the subscriptions for topics.
func (c *Connection) Unsubscribe(ctx context.Context, topics ...string) error {
	token := c.client.Unsubscribe(topics...)
	if err := c.wait(ctx, token, 2*time.Second); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

// Disconnect closes the session, giving in-flight work DisconnectQuiesce to
// finish. It also stops any background connection retries.
func (c *Connection) Disconnect() {
	c.client.Disconnect(uint(c.cfg.DisconnectQuiesce.Milliseconds()))
	c.logger.Info().Msg("Paho MQTT client disconnected.")
}

func (c *Connection) wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// createMqttOptions assembles the Paho client options from the config.
func (c *Connection) createMqttOptions() (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.cfg.BrokerURL)
	opts.SetClientID(c.cfg.ClientIDPrefix + uuid.NewString()[:8])
	opts.SetUsername(c.cfg.Username)
	opts.SetPassword(c.cfg.Password)
	opts.SetKeepAlive(c.cfg.KeepAlive)
	opts.SetConnectTimeout(c.cfg.ConnectTimeout)
	opts.SetConnectRetry(c.cfg.ConnectRetry)
	if c.cfg.ReconnectWaitMin > 0 {
		opts.SetConnectRetryInterval(c.cfg.ReconnectWaitMin)
	}
	opts.SetAutoReconnect(true)
	if c.cfg.ReconnectWaitMax > 0 {
		opts.SetMaxReconnectInterval(c.cfg.ReconnectWaitMax)
	}
	opts.SetOrderMatters(false)
	opts.SetOnConnectHandler(c.ConnectHandler())
	opts.SetConnectionLostHandler(c.ConnectionLostHandler())
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		c.logger.Warn().Msg("Reconnecting to MQTT broker...")
	})

	if strings.HasPrefix(strings.ToLower(c.cfg.BrokerURL), "tls://") || strings.HasPrefix(strings.ToLower(c.cfg.BrokerURL), "ssl://") {
		tlsConfig, err := newTLSConfig(c.cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts.SetTLSConfig(tlsConfig)
		c.logger.Info().Msg("TLS configured for MQTT client.")
	}
	return opts, nil
}

// newTLSConfig is a helper to create a tls.Config.
func newTLSConfig(cfg *MQTTClientConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}
	if cfg.CACertFile != "" {
		caCert, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert file %s: %w", cfg.CACertFile, err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to append CA cert from %s", cfg.CACertFile)
		}
		tlsConfig.RootCAs = caCertPool
	}
	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate/key pair: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}
