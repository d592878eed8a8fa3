package messagepipeline

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// SimplePublisher defines a generic, direct publisher interface.
type SimplePublisher interface {
	Publish(ctx context.Context, payload []byte, attributes map[string]string) error
	// Stop flushes any pending messages and accepts a context for timeout control.
	Stop(ctx context.Context) error
}

// GoogleSimplePublisherConfig configures a GoogleSimplePublisher.
type GoogleSimplePublisherConfig struct {
	TopicID string
	// ResultTimeout bounds the background wait for each publish result.
	ResultTimeout time.Duration
	// CountThreshold and DelayThreshold override the client's batching defaults when set.
	CountThreshold int
	DelayThreshold time.Duration
}

// NewGoogleSimplePublisherDefaults returns a config for topicID with default timeouts.
func NewGoogleSimplePublisherDefaults(topicID string) *GoogleSimplePublisherConfig {
	return &GoogleSimplePublisherConfig{
		TopicID:       topicID,
		ResultTimeout: 30 * time.Second,
	}
}

// GoogleSimplePublisher implements a direct-to-Pub/Sub publisher.
type GoogleSimplePublisher struct {
	topic         *pubsub.Topic
	resultTimeout time.Duration
	logger        zerolog.Logger
}

// NewGoogleSimplePublisher creates a new publisher for cfg.TopicID.
// It accepts a context to verify that the target topic exists before returning.
func NewGoogleSimplePublisher(ctx context.Context, cfg *GoogleSimplePublisherConfig, client *pubsub.Client, logger zerolog.Logger) (*GoogleSimplePublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client cannot be nil")
	}
	if cfg == nil || cfg.TopicID == "" {
		return nil, fmt.Errorf("pubsub topic id is required")
	}
	topic := client.Topic(cfg.TopicID)

	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for topic %s: %w", cfg.TopicID, err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %s does not exist", cfg.TopicID)
	}

	if cfg.CountThreshold > 0 {
		topic.PublishSettings.CountThreshold = cfg.CountThreshold
	}
	if cfg.DelayThreshold > 0 {
		topic.PublishSettings.DelayThreshold = cfg.DelayThreshold
	}
	resultTimeout := cfg.ResultTimeout
	if resultTimeout <= 0 {
		resultTimeout = 30 * time.Second
	}

	return &GoogleSimplePublisher{
		topic:         topic,
		resultTimeout: resultTimeout,
		logger:        logger.With().Str("component", "GoogleSimplePublisher").Str("topic_id", cfg.TopicID).Logger(),
	}, nil
}

// Publish queues a single message for Pub/Sub. It returns immediately and logs
// the final result of the publish operation asynchronously.
func (p *GoogleSimplePublisher) Publish(ctx context.Context, payload []byte, attributes map[string]string) error {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: attributes,
	})

	go func() {
		// A fresh context, so a short-lived publish context does not cancel the wait.
		getCtx, cancel := context.WithTimeout(context.Background(), p.resultTimeout)
		defer cancel()

		msgID, err := result.Get(getCtx)
		if err != nil {
			p.logger.Error().Err(err).Msg("Failed to publish message")
			return
		}
		p.logger.Debug().Str("published_msg_id", msgID).Msg("Message sent successfully.")
	}()

	return nil
}

// Stop flushes any pending messages for the topic, respecting the context's timeout.
func (p *GoogleSimplePublisher) Stop(ctx context.Context) error {
	if p.topic == nil {
		return nil
	}

	stopDone := make(chan struct{})
	go func() {
		p.topic.Stop()
		close(stopDone)
	}()

	select {
	case <-stopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
