package gateway

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/illmade-knight/uns-gateway/pkg/messagepipeline"
	"github.com/illmade-knight/uns-gateway/pkg/microservice"
	"github.com/illmade-knight/uns-gateway/pkg/mqttconverter"
	"github.com/illmade-knight/uns-gateway/pkg/router"
	"github.com/illmade-knight/uns-gateway/pkg/tagmap"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Mapping source kinds.
const (
	MappingSourceFile      = "file"
	MappingSourceFirestore = "firestore"
	MappingSourceRedis     = "redis"
)

// Config is the gateway configuration file.
type Config struct {
	microservice.BaseConfig `yaml:",inline"`

	MQTT     mqttconverter.MQTTClientConfig `yaml:"mqtt"`
	Mapping  MappingConfig                  `yaml:"mapping"`
	PubSub   PubSubConfig                   `yaml:"pubsub"`
	Router   RouterConfig                   `yaml:"router"`
	Pipeline PipelineConfig                 `yaml:"pipeline"`
}

// MappingConfig selects where the tag mapping is loaded from.
type MappingConfig struct {
	Source    string                 `yaml:"source"`
	File      string                 `yaml:"file"`
	Firestore tagmap.FirestoreConfig `yaml:"firestore"`
	Redis     tagmap.RedisConfig     `yaml:"redis"`
}

// PubSubConfig configures the optional mirror of every canonical payload to a
// Pub/Sub topic.
type PubSubConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ProjectID string `yaml:"project_id"`
	TopicID   string `yaml:"topic_id"`
}

// RouterConfig holds the message-handling switches.
type RouterConfig struct {
	ValueField   string `yaml:"value_field"`
	StrictValues bool   `yaml:"strict_values"`
}

// PipelineConfig sizes the worker pool between the MQTT callbacks and the router.
type PipelineConfig struct {
	messagepipeline.StreamingServiceConfig `yaml:",inline"`

	BufferSize      int           `yaml:"buffer_size"`
	MaxPayloadBytes int           `yaml:"max_payload_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load reads the configuration file at path. MQTT_* environment variables
// override the mqtt section, and a relative mapping file is resolved against
// the directory of the config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.Mapping.File != "" && !filepath.IsAbs(cfg.Mapping.File) {
		cfg.Mapping.File = filepath.Join(filepath.Dir(path), cfg.Mapping.File)
	}
	return cfg, nil
}

// Parse decodes a configuration document, applies defaults and the MQTT_*
// environment overrides, and validates the result.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{MQTT: *mqttconverter.NewMQTTClientConfigDefaults()}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("malformed YAML: %w", err)
	}
	mqttconverter.ApplyEnv(&cfg.MQTT)

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTPPort == "" {
		c.HTTPPort = ":8080"
	}
	if c.ServiceName == "" {
		c.ServiceName = "uns-gateway"
	}
	if c.Mapping.Source == "" {
		c.Mapping.Source = MappingSourceFile
	}
	if c.Mapping.Firestore.ProjectID == "" {
		c.Mapping.Firestore.ProjectID = c.ProjectID
	}
	if c.Mapping.Redis.Key == "" {
		c.Mapping.Redis.Key = tagmap.DefaultRedisKey
	}
	if c.PubSub.ProjectID == "" {
		c.PubSub.ProjectID = c.ProjectID
	}
	if c.Router.ValueField == "" {
		c.Router.ValueField = router.DefaultValueField
	}
	if c.Pipeline.NumWorkers == 0 {
		c.Pipeline.NumWorkers = 5
	}
	if c.Pipeline.BufferSize == 0 {
		c.Pipeline.BufferSize = 1000
	}
	if c.Pipeline.ShutdownTimeout == 0 {
		c.Pipeline.ShutdownTimeout = 15 * time.Second
	}
}

func (c *Config) validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.MQTT.BrokerURL == "" {
		errs = append(errs, errors.New("mqtt.broker_url is required"))
	}
	if c.MQTT.Username == "" && !c.MQTT.AllowPublicBroker {
		errs = append(errs, errors.New("mqtt.username is required unless mqtt.allow_public_broker is set"))
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}

	switch c.Mapping.Source {
	case MappingSourceFile:
		if c.Mapping.File == "" {
			errs = append(errs, errors.New("mapping.file is required for the file source"))
		}
	case MappingSourceFirestore:
		if c.Mapping.Firestore.ProjectID == "" {
			errs = append(errs, errors.New("mapping.firestore.project_id (or project_id) is required for the firestore source"))
		}
		if c.Mapping.Firestore.CollectionName == "" {
			errs = append(errs, errors.New("mapping.firestore.collection is required for the firestore source"))
		}
	case MappingSourceRedis:
		if c.Mapping.Redis.Addr == "" {
			errs = append(errs, errors.New("mapping.redis.addr is required for the redis source"))
		}
	default:
		errs = append(errs, fmt.Errorf("mapping.source %q is not one of file, firestore, redis", c.Mapping.Source))
	}

	if c.PubSub.Enabled {
		if c.PubSub.ProjectID == "" {
			errs = append(errs, errors.New("pubsub.project_id (or project_id) is required when the mirror is enabled"))
		}
		if c.PubSub.TopicID == "" {
			errs = append(errs, errors.New("pubsub.topic_id is required when the mirror is enabled"))
		}
	}

	if c.Pipeline.NumWorkers < 0 {
		errs = append(errs, errors.New("pipeline.workers cannot be negative"))
	}
	if c.Pipeline.BufferSize < 0 {
		errs = append(errs, errors.New("pipeline.buffer_size cannot be negative"))
	}
	if c.Pipeline.MaxPayloadBytes < 0 {
		errs = append(errs, errors.New("pipeline.max_payload_bytes cannot be negative"))
	}
	return errors.Join(errs...)
}
