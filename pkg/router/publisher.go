package router

import (
	"context"
	"errors"
)

// Publisher is the outbound half of the transport: it delivers a serialized
// canonical payload to a UNS topic. retain asks the broker to keep the payload
// as the topic's last value for future subscribers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, retain bool) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, topic string, payload []byte, retain bool) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	return f(ctx, topic, payload, retain)
}

// MultiPublisher publishes to every wrapped Publisher in order, continuing past
// failures, and returns the joined errors.
type MultiPublisher []Publisher

// Publish implements Publisher.
func (m MultiPublisher) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, topic, payload, retain); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
