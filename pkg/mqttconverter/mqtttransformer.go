package mqttconverter

import (
	"context"
	"fmt"

	"github.com/illmade-knight/uns-gateway/pkg/messagepipeline"
)

// ToRawMessageTransformer is a MessageTransformer that converts a consumed
// pipeline message (originating from MQTT) into a RawMessage.
func ToRawMessageTransformer(_ context.Context, msg *messagepipeline.Message) (*RawMessage, bool, error) {
	topic, ok := msg.Attributes[AttrTopic]
	if !ok || topic == "" {
		return nil, false, fmt.Errorf("message %s has no %s attribute", msg.ID, AttrTopic)
	}
	return &RawMessage{
		Topic:     topic,
		Payload:   msg.Payload,
		Timestamp: msg.PublishTime,
	}, false, nil
}
