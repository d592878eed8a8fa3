package mqttconverter

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/illmade-knight/uns-gateway/pkg/messagepipeline"
	"github.com/rs/zerolog"
)

// Attribute keys set on every consumed message.
const (
	AttrTopic     = "mqtt_topic"
	AttrMessageID = "mqtt_message_id"
	AttrRetained  = "mqtt_retained"
)

// MqttConsumer implements the messagepipeline.MessageConsumer interface for a
// fixed set of literal MQTT topics. The set is subscribed on every (re)connect;
// the consumer is ready once the broker has confirmed the subscription.
type MqttConsumer struct {
	conn       *Connection
	topics     []string
	logger     zerolog.Logger
	outputChan chan messagepipeline.Message
	doneChan   chan struct{}
	stopping   chan struct{}
	stopOnce   sync.Once
	subscribed atomic.Bool

	// mu guards outputChan against being closed while a Paho callback sends.
	mu      sync.RWMutex
	stopped bool
}

// NewMqttConsumer creates a consumer for topics. Duplicate topics are
// subscribed once. It does not subscribe until Start is called.
func NewMqttConsumer(conn *Connection, topics []string, logger zerolog.Logger, bufferSize int) (*MqttConsumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("mqtt connection cannot be nil")
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("at least one topic is required")
	}
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	seen := make(map[string]struct{}, len(topics))
	unique := make([]string, 0, len(topics))
	for _, t := range topics {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}

	return &MqttConsumer{
		conn:       conn,
		topics:     unique,
		logger:     logger.With().Str("component", "MqttConsumer").Logger(),
		outputChan: make(chan messagepipeline.Message, bufferSize),
		doneChan:   make(chan struct{}),
		stopping:   make(chan struct{}),
	}, nil
}

// Topics returns the subscription set.
func (c *MqttConsumer) Topics() []string {
	out := make([]string, len(c.topics))
	copy(out, c.topics)
	return out
}

// Messages returns the read-only channel from which raw messages can be consumed.
func (c *MqttConsumer) Messages() <-chan messagepipeline.Message {
	return c.outputChan
}

// Start registers the subscription hook and connects if the connection is not
// already up. It returns an error only if the connection cannot be established.
func (c *MqttConsumer) Start(ctx context.Context) error {
	c.conn.OnConnectionLost(func(error) {
		c.subscribed.Store(false)
	})
	c.conn.OnConnect(func(mqtt.Client) {
		go c.subscribe()
	})

	if err := c.conn.Connect(ctx); err != nil {
		return err
	}

	go func() {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Shutdown signal received, ensuring consumer is stopped.")
			_ = c.Stop(context.Background())
		case <-c.doneChan:
		}
	}()
	return nil
}

func (c *MqttConsumer) subscribe() {
	select {
	case <-c.stopping:
		return
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.conn.Subscribe(ctx, c.topics, c.handleIncomingMessage); err != nil {
		c.logger.Error().Err(err).Strs("topics", c.topics).Msg("Failed to subscribe to legacy topics.")
		return
	}
	c.subscribed.Store(true)
	for _, t := range c.topics {
		c.logger.Info().Str("topic", t).Msg("Subscribed.")
	}
}

// IsReady reports whether the connection is up and the topic set subscribed.
func (c *MqttConsumer) IsReady() bool {
	return c.subscribed.Load() && c.conn.IsConnected()
}

// Stop unsubscribes and closes the message channel. Messages already queued stay
// readable until drained. The connection itself is left open for publishers.
func (c *MqttConsumer) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() {
		c.logger.Info().Msg("Stopping MqttConsumer...")
		close(c.stopping)

		if c.conn.IsConnected() {
			if err := c.conn.Unsubscribe(ctx, c.topics...); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to unsubscribe from legacy topics.")
			}
		}
		c.subscribed.Store(false)

		c.mu.Lock()
		c.stopped = true
		close(c.outputChan)
		c.mu.Unlock()

		close(c.doneChan)
		c.logger.Info().Msg("MqttConsumer stopped.")
	})
	return nil
}

// Done returns a channel that is closed when the consumer has fully stopped.
func (c *MqttConsumer) Done() <-chan struct{} {
	return c.doneChan
}

// MessageHandlerForTest returns the internal message handler for unit testing.
func (c *MqttConsumer) MessageHandlerForTest() mqtt.MessageHandler {
	return c.handleIncomingMessage
}

// handleIncomingMessage is the callback that converts MQTT messages to our standard format.
func (c *MqttConsumer) handleIncomingMessage(_ mqtt.Client, msg mqtt.Message) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stopped {
		c.logger.Debug().Str("topic", msg.Topic()).Msg("Consumer stopped, dropping MQTT message.")
		return
	}

	c.logger.Debug().Str("topic", msg.Topic()).Msg("Received MQTT message")
	payloadCopy := make([]byte, len(msg.Payload()))
	copy(payloadCopy, msg.Payload())

	consumedMsg := messagepipeline.Message{
		MessageData: messagepipeline.MessageData{
			ID:          uuid.NewString(),
			Payload:     payloadCopy,
			PublishTime: time.Now().UTC(),
		},
		Attributes: map[string]string{
			AttrTopic:     msg.Topic(),
			AttrMessageID: strconv.Itoa(int(msg.MessageID())),
			AttrRetained:  strconv.FormatBool(msg.Retained()),
		},
		// Paho acknowledges QoS 1/2 deliveries itself once this callback returns.
		Ack:  func() {},
		Nack: func() {},
	}
	select {
	case c.outputChan <- consumedMsg:
	case <-c.stopping:
		c.logger.Warn().Str("topic", msg.Topic()).Msg("Consumer is shutting down, dropping MQTT message.")
	}
}
