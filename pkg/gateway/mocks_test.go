package gateway_test

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type mockToken struct{ err error }

func (m *mockToken) Wait() bool                       { return true }
func (m *mockToken) WaitTimeout(_ time.Duration) bool { return true }
func (m *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (m *mockToken) Error() error { return m.err }

type mockMqttMessage struct {
	topic   string
	payload []byte
}

func (m *mockMqttMessage) Topic() string     { return m.topic }
func (m *mockMqttMessage) Payload() []byte   { return m.payload }
func (m *mockMqttMessage) MessageID() uint16 { return 1 }
func (m *mockMqttMessage) Duplicate() bool   { return false }
func (m *mockMqttMessage) Qos() byte         { return 1 }
func (m *mockMqttMessage) Retained() bool    { return false }
func (m *mockMqttMessage) Ack()              {}

type publishedMessage struct {
	topic    string
	retained bool
	payload  []byte
}

// mockBroker is an in-memory stand-in for a Paho client connected to a broker.
type mockBroker struct {
	mu               sync.Mutex
	connected        bool
	connectErr       error
	disconnectCalled bool
	subscribed       map[string]byte
	unsubscribed     []string
	handler          mqtt.MessageHandler
	published        []publishedMessage
	onConnect        mqtt.OnConnectHandler
}

func (m *mockBroker) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}
func (m *mockBroker) IsConnectionOpen() bool { return m.IsConnected() }

func (m *mockBroker) Connect() mqtt.Token {
	m.mu.Lock()
	if m.connectErr != nil {
		m.mu.Unlock()
		return &mockToken{err: m.connectErr}
	}
	m.connected = true
	onConnect := m.onConnect
	m.mu.Unlock()
	if onConnect != nil {
		onConnect(m)
	}
	return &mockToken{}
}

func (m *mockBroker) Disconnect(_ uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.disconnectCalled = true
}

func (m *mockBroker) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, _ := payload.([]byte)
	m.published = append(m.published, publishedMessage{topic: topic, retained: retained, payload: b})
	return &mockToken{}
}

func (m *mockBroker) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	return m.SubscribeMultiple(map[string]byte{topic: qos}, callback)
}

func (m *mockBroker) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = filters
	m.handler = callback
	return &mockToken{}
}

func (m *mockBroker) Unsubscribe(topics ...string) mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed = append(m.unsubscribed, topics...)
	return &mockToken{}
}

func (m *mockBroker) AddRoute(_ string, _ mqtt.MessageHandler) {}
func (m *mockBroker) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

// deliver simulates the broker delivering a message on a subscribed topic.
func (m *mockBroker) deliver(topic string, payload []byte) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	handler(m, &mockMqttMessage{topic: topic, payload: payload})
}

func (m *mockBroker) publishedMessages() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]publishedMessage, len(m.published))
	copy(out, m.published)
	return out
}
