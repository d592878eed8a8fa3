package mqttconverter

import "time"

// RawMessage is a legacy reading as it arrived: its source topic, the untouched
// body and the time it was received.
type RawMessage struct {
	Topic     string    `json:"topic"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}
