package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/illmade-knight/uns-gateway/pkg/messagepipeline"
	"github.com/illmade-knight/uns-gateway/pkg/microservice"
	"github.com/illmade-knight/uns-gateway/pkg/mqttconverter"
	"github.com/illmade-knight/uns-gateway/pkg/router"
	"github.com/illmade-knight/uns-gateway/pkg/tagmap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Dependencies are the externally created parts of a Service.
type Dependencies struct {
	// Connection is the MQTT session shared by the consumer and the publisher.
	Connection *mqttconverter.Connection
	Tags       *tagmap.Map
	// Mirror is optional.
	Mirror *PubSubMirror
	// Registry receives the gateway metrics. A fresh registry is used if nil.
	Registry *prometheus.Registry
	// Clock stamps canonical payloads. time.Now if nil.
	Clock func() time.Time
}

// Service wires the MQTT consumer, the worker pool and the router, and serves
// the health, readiness and metrics endpoints.
type Service struct {
	*microservice.BaseServer

	cfg      *Config
	logger   zerolog.Logger
	conn     *mqttconverter.Connection
	consumer *mqttconverter.MqttConsumer
	router   *router.Router
	metrics  *router.Metrics
	pipeline *messagepipeline.StreamingService[mqttconverter.RawMessage]
	mirror   *PubSubMirror
	closers  []func() error

	cancel       context.CancelFunc
	shutdownOnce sync.Once
	shutdownErr  error
}

var _ microservice.Service = (*Service)(nil)

// NewService assembles a Service from cfg and deps. Nothing connects until Start.
func NewService(cfg *Config, deps Dependencies, logger zerolog.Logger) (*Service, error) {
	if deps.Connection == nil {
		return nil, errors.New("mqtt connection cannot be nil")
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	metrics, err := router.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	var publisher router.Publisher = deps.Connection
	if deps.Mirror != nil {
		publisher = router.MultiPublisher{deps.Connection, deps.Mirror}
	}

	r, err := router.New(deps.Tags, publisher, logger,
		router.WithValueField(cfg.Router.ValueField),
		router.WithStrictValues(cfg.Router.StrictValues),
		router.WithClock(deps.Clock),
		router.WithObserver(metrics),
		router.WithObserver(router.NewTransformationRenderer(logger)),
	)
	if err != nil {
		return nil, err
	}

	consumer, err := mqttconverter.NewMqttConsumer(deps.Connection, r.Topics(), logger, cfg.Pipeline.BufferSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create mqtt consumer: %w", err)
	}

	s := &Service{
		BaseServer: microservice.NewBaseServer(logger, cfg.HTTPPort),
		cfg:        cfg,
		logger:     logger.With().Str("component", "GatewayService").Logger(),
		conn:       deps.Connection,
		consumer:   consumer,
		router:     r,
		metrics:    metrics,
		mirror:     deps.Mirror,
	}

	transformer := messagepipeline.WithPayloadValidation[mqttconverter.RawMessage](
		mqttconverter.ToRawMessageTransformer, 0, cfg.Pipeline.MaxPayloadBytes, s.logger)
	pipeline, err := messagepipeline.NewStreamingService[mqttconverter.RawMessage](
		cfg.Pipeline.StreamingServiceConfig, consumer, transformer, s.process, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	s.pipeline = pipeline

	s.SetReadinessCheck(s.Ready)
	s.HandleMetrics(registry)
	return s, nil
}

// Build creates every dependency from cfg: the tag mapping, the MQTT connection
// and, if enabled, the Pub/Sub mirror. Mapping problems are returned as
// *tagmap.ConfigError.
func Build(ctx context.Context, cfg *Config, logger zerolog.Logger) (*Service, error) {
	tags, err := LoadMapping(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	conn, err := mqttconverter.NewConnection(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create mqtt connection: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps := Dependencies{Connection: conn, Tags: tags, Registry: registry}

	var closers []func() error
	if cfg.PubSub.Enabled {
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		psClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		pub, err := messagepipeline.NewGoogleSimplePublisher(ctx,
			messagepipeline.NewGoogleSimplePublisherDefaults(cfg.PubSub.TopicID), psClient, logger)
		if err != nil {
			_ = psClient.Close()
			return nil, fmt.Errorf("failed to create pubsub mirror: %w", err)
		}
		deps.Mirror = NewPubSubMirror(pub)
		closers = append(closers, psClient.Close)
	}

	s, err := NewService(cfg, deps, logger)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}
	s.closers = closers
	return s, nil
}

// Router returns the service's router.
func (s *Service) Router() *router.Router {
	return s.router
}

// Metrics returns the outcome counters.
func (s *Service) Metrics() *router.Metrics {
	return s.metrics
}

// Start connects to the broker, honouring ctx while the connection is being
// established, then starts the worker pool and the HTTP server. The legacy
// topics are subscribed on every (re)connect.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info().Int("tag_count", len(s.router.Topics())).Msg("Starting UNS gateway.")
	if err := s.conn.Connect(ctx); err != nil {
		return err
	}

	// The pipeline outlives the start context; Shutdown stops it.
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if err := s.pipeline.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	return s.BaseServer.Start()
}

// Ready reports whether the legacy topics are subscribed on a live connection.
func (s *Service) Ready() error {
	if !s.consumer.IsReady() {
		return errors.New("mqtt subscription not established")
	}
	return nil
}

// Shutdown stops consuming, waits for in-flight messages to be handled, then
// closes the MQTT session, the mirror and the HTTP server. It is safe to call
// more than once.
func (s *Service) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.shutdown(ctx)
	})
	return s.shutdownErr
}

func (s *Service) shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down UNS gateway...")
	var errs []error

	if err := s.pipeline.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("pipeline stop: %w", err))
	}
	s.conn.Disconnect()
	if s.cancel != nil {
		s.cancel()
	}

	if s.mirror != nil {
		if err := s.mirror.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("pubsub mirror stop: %w", err))
		}
	}
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.BaseServer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info().Msg("UNS gateway stopped.")
	return errors.Join(errs...)
}

func (s *Service) process(ctx context.Context, _ messagepipeline.Message, raw *mqttconverter.RawMessage) error {
	s.router.Handle(ctx, raw.Topic, raw.Payload)
	return nil
}
