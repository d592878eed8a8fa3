package mqttconverter

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// MQTTClientConfig holds all necessary configuration for the Paho MQTT client.
// It defines connection parameters, security settings and delivery options; the
// topics to subscribe to are supplied separately by the consumer.
type MQTTClientConfig struct {
	// BrokerURL is the full URL of the MQTT broker to connect to.
	// Example: "tls://mqtt.example.com:8883"
	BrokerURL string `yaml:"broker_url"`
	// ClientIDPrefix is a prefix for the MQTT client ID. A unique suffix is
	// automatically added to ensure client uniqueness, which is required by most brokers.
	ClientIDPrefix string `yaml:"client_id_prefix"`
	// AllowPublicBroker is a security flag that, when set to true, permits the client
	// to connect to a broker without providing a username and password. This should
	// only be enabled for trusted plant networks. Defaults to false.
	AllowPublicBroker bool   `yaml:"allow_public_broker"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	// KeepAlive is the interval at which the client sends keep-alive pings to the broker.
	KeepAlive time.Duration `yaml:"keep_alive"`
	// ConnectTimeout bounds a single connection attempt.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// ConnectRetry keeps retrying the initial connection until it succeeds or the
	// caller gives up. When false the first failed attempt is returned as an error.
	ConnectRetry bool `yaml:"connect_retry"`
	// ReconnectWaitMin is the wait between connection retries.
	ReconnectWaitMin time.Duration `yaml:"reconnect_wait_min"`
	// ReconnectWaitMax caps the back-off between automatic reconnects.
	ReconnectWaitMax time.Duration `yaml:"reconnect_wait_max"`
	// QoS is used for both subscriptions and publishes.
	QoS byte `yaml:"qos"`
	// PublishTimeout bounds the wait for a publish acknowledgement.
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	// DisconnectQuiesce is how long in-flight work may take to complete on disconnect.
	DisconnectQuiesce time.Duration `yaml:"disconnect_quiesce"`
	// CACertFile is an optional path to a CA certificate file for verifying the broker's certificate.
	CACertFile string `yaml:"ca_cert_file"`
	// ClientCertFile is an optional path to a client certificate file for mTLS authentication.
	ClientCertFile string `yaml:"client_cert_file"`
	// ClientKeyFile is an optional path to a client key file for mTLS authentication.
	ClientKeyFile string `yaml:"client_key_file"`
	// InsecureSkipVerify skips TLS certificate verification.
	// This is NOT recommended for production environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Env constants for setting Mqtt settings
const (
	MqttBrokerURL             = "MQTT_BROKER_URL"
	MqttUsername              = "MQTT_USERNAME"
	MqttPassword              = "MQTT_PASSWORD"
	MqttSkipVerify            = "MQTT_INSECURE_SKIP_VERIFY"
	MqttKeepAliveSeconds      = "MQTT_KEEP_ALIVE_SECONDS"
	MqttConnectTimeoutSeconds = "MQTT_CONNECT_TIMEOUT_SECONDS"
	MqttQoS                   = "MQTT_QOS"
)

// NewMQTTClientConfigDefaults returns a config populated with the defaults used
// by the gateway.
func NewMQTTClientConfigDefaults() *MQTTClientConfig {
	return &MQTTClientConfig{
		KeepAlive:         60 * time.Second,
		ConnectTimeout:    10 * time.Second,
		ConnectRetry:      true,
		ReconnectWaitMin:  1 * time.Second,
		ReconnectWaitMax:  120 * time.Second,
		QoS:               1,
		PublishTimeout:    5 * time.Second,
		DisconnectQuiesce: 500 * time.Millisecond,
		ClientIDPrefix:    "uns-gateway-",
	}
}

// LoadMQTTClientConfigFromEnv returns the defaults overridden by any MQTT_*
// environment variables that are set.
func LoadMQTTClientConfigFromEnv() *MQTTClientConfig {
	cfg := NewMQTTClientConfigDefaults()
	ApplyEnv(cfg)
	return cfg
}

// ApplyEnv overrides cfg with the MQTT_* environment variables that are set.
// Unparseable values are logged and ignored.
func ApplyEnv(cfg *MQTTClientConfig) {
	if url := os.Getenv(MqttBrokerURL); url != "" {
		cfg.BrokerURL = url
	}
	if user := os.Getenv(MqttUsername); user != "" {
		cfg.Username = user
	}
	if pass := os.Getenv(MqttPassword); pass != "" {
		cfg.Password = pass
	}
	if skipVerify := os.Getenv(MqttSkipVerify); skipVerify == "true" {
		cfg.InsecureSkipVerify = true
	}

	if ka := os.Getenv(MqttKeepAliveSeconds); ka != "" {
		s, err := time.ParseDuration(ka + "s")
		if err == nil {
			cfg.KeepAlive = s
		} else {
			log.Printf("mqttconverter: error parsing keepAlive seconds: %s, using default", err)
		}
	}
	if ct := os.Getenv(MqttConnectTimeoutSeconds); ct != "" {
		s, err := time.ParseDuration(ct + "s")
		if err == nil {
			cfg.ConnectTimeout = s
		} else {
			log.Printf("mqttconverter: error parsing connect timeout seconds: %s, using default", err)
		}
	}
	if q := os.Getenv(MqttQoS); q != "" {
		qos, err := strconv.ParseUint(q, 10, 8)
		if err == nil && qos <= 2 {
			cfg.QoS = byte(qos)
		} else {
			log.Printf("mqttconverter: invalid QoS %q, using default", q)
		}
	}
}
