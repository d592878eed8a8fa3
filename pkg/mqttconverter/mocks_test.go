package mqttconverter_test

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// --- Mocks for Paho MQTT Client ---
type mockToken struct {
	err  error
	done chan struct{}
}

func newDoneToken(err error) *mockToken {
	ch := make(chan struct{})
	close(ch)
	return &mockToken{err: err, done: ch}
}

// newPendingToken returns a token that never completes.
func newPendingToken() *mockToken {
	return &mockToken{done: make(chan struct{})}
}

func (m *mockToken) Wait() bool {
	<-m.done
	return true
}
func (m *mockToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-m.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (m *mockToken) Done() <-chan struct{} { return m.done }
func (m *mockToken) Error() error          { return m.err }

type mockMqttMessage struct {
	topic     string
	payload   []byte
	messageID uint16
	retained  bool
}

func (m *mockMqttMessage) Topic() string     { return m.topic }
func (m *mockMqttMessage) Payload() []byte   { return m.payload }
func (m *mockMqttMessage) MessageID() uint16 { return m.messageID }
func (m *mockMqttMessage) Duplicate() bool   { return false }
func (m *mockMqttMessage) Qos() byte         { return 1 }
func (m *mockMqttMessage) Retained() bool    { return m.retained }
func (m *mockMqttMessage) Ack()              {}

type publishedMessage struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type mockMqttClient struct {
	mu               sync.Mutex
	isConnected      bool
	disconnectCalled bool
	connectErr       error
	connectToken     *mockToken
	publishErr       error
	subscribeCalls   int
	subscribed       map[string]byte
	unsubscribed     []string
	published        []publishedMessage
	messageHandler   mqtt.MessageHandler
	// onConnect stands in for the OnConnectHandler Paho would call.
	onConnect mqtt.OnConnectHandler
}

func (m *mockMqttClient) setConnected(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isConnected = v
}

func (m *mockMqttClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isConnected
}

func (m *mockMqttClient) IsConnectionOpen() bool { return m.IsConnected() }

func (m *mockMqttClient) Connect() mqtt.Token {
	m.mu.Lock()
	if m.connectToken != nil {
		token := m.connectToken
		m.mu.Unlock()
		return token
	}
	if m.connectErr != nil {
		err := m.connectErr
		m.mu.Unlock()
		return newDoneToken(err)
	}
	m.isConnected = true
	onConnect := m.onConnect
	m.mu.Unlock()

	if onConnect != nil {
		onConnect(m)
	}
	return newDoneToken(nil)
}

func (m *mockMqttClient) Disconnect(_ uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isConnected = false
	m.disconnectCalled = true
}

func (m *mockMqttClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return newDoneToken(m.publishErr)
	}
	b, _ := payload.([]byte)
	m.published = append(m.published, publishedMessage{topic: topic, qos: qos, retained: retained, payload: b})
	return newDoneToken(nil)
}

func (m *mockMqttClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	return m.SubscribeMultiple(map[string]byte{topic: qos}, callback)
}

func (m *mockMqttClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeCalls++
	m.subscribed = make(map[string]byte, len(filters))
	for k, v := range filters {
		m.subscribed[k] = v
	}
	m.messageHandler = callback
	return newDoneToken(nil)
}

func (m *mockMqttClient) Unsubscribe(topics ...string) mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed = append(m.unsubscribed, topics...)
	return newDoneToken(nil)
}

func (m *mockMqttClient) AddRoute(_ string, _ mqtt.MessageHandler) {}
func (m *mockMqttClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

func (m *mockMqttClient) handler() mqtt.MessageHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messageHandler
}

func (m *mockMqttClient) subscriptions() (map[string]byte, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribed, m.subscribeCalls
}
