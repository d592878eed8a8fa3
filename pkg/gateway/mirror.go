package gateway

import (
	"context"
	"strconv"

	"github.com/illmade-knight/uns-gateway/pkg/messagepipeline"
)

// Attributes set on mirrored Pub/Sub messages.
const (
	AttrUNSTopic = "uns_topic"
	AttrRetain   = "retain"
)

// PubSubMirror is a router.Publisher that copies each canonical payload to a
// single Pub/Sub topic, carrying the UNS topic as an attribute.
type PubSubMirror struct {
	publisher messagepipeline.SimplePublisher
}

// NewPubSubMirror wraps publisher.
func NewPubSubMirror(publisher messagepipeline.SimplePublisher) *PubSubMirror {
	return &PubSubMirror{publisher: publisher}
}

// Publish implements router.Publisher.
func (m *PubSubMirror) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	return m.publisher.Publish(ctx, payload, map[string]string{
		AttrUNSTopic: topic,
		AttrRetain:   strconv.FormatBool(retain),
	})
}

// Stop flushes pending publishes.
func (m *PubSubMirror) Stop(ctx context.Context) error {
	return m.publisher.Stop(ctx)
}
