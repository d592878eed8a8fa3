package messagepipeline

import (
	"time"
)

// Message is the canonical, internal representation of an event flowing through the
// pipeline. It contains the core data, metadata, and acknowledgment handles.
type Message struct {
	MessageData

	// Attributes holds metadata from the message broker (e.g. the MQTT topic).
	Attributes map[string]string

	// Ack signals that processing finished and the message can be forgotten.
	Ack func()

	// Nack signals that processing failed. Sources without redelivery treat it
	// like Ack.
	Nack func()
}

// MessageData holds the essential payload of a message.
type MessageData struct {
	// ID is a unique identifier assigned when the message entered the pipeline.
	ID string `json:"id"`

	// Payload is the raw byte content of the message.
	Payload []byte `json:"payload"`

	// PublishTime is the time the message was received from the source broker.
	PublishTime time.Time `json:"publishTime"`
}

func (m *Message) ack() {
	if m.Ack != nil {
		m.Ack()
	}
}

func (m *Message) nack() {
	if m.Nack != nil {
		m.Nack()
	}
}
