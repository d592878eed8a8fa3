package simulator_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/illmade-knight/uns-gateway/pkg/simulator"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	topic   string
	payload []byte
	retain  bool
}

type mockPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (m *mockPublisher) Publish(_ context.Context, topic string, payload []byte, retain bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, published{topic: topic, payload: payload, retain: retain})
	return nil
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}

func TestSimulator_Tick(t *testing.T) {
	// Arrange
	pub := &mockPublisher{}
	sim, err := simulator.New(simulator.DefaultTags, pub, zerolog.Nop(), simulator.WithRand(rand.New(rand.NewPCG(1, 2))))
	require.NoError(t, err)

	// Act
	require.NoError(t, sim.Tick(context.Background()))

	// Assert
	require.Len(t, pub.msgs, len(simulator.DefaultTags))
	for i, msg := range pub.msgs {
		tag := simulator.DefaultTags[i]
		assert.Equal(t, tag.Topic, msg.topic)
		assert.False(t, msg.retain)

		var body map[string]float64
		require.NoError(t, json.Unmarshal(msg.payload, &body))
		require.Len(t, body, 1)
		v, ok := body["v"]
		require.True(t, ok)
		assert.GreaterOrEqual(t, v, tag.Min)
		assert.LessOrEqual(t, v, tag.Max)
	}
}

func TestSimulator_ReadingIsRounded(t *testing.T) {
	sim, err := simulator.New(simulator.DefaultTags, &mockPublisher{}, zerolog.Nop())
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		v := sim.Reading(simulator.Tag{Topic: "t", Min: 0, Max: 1})
		assert.InDelta(t, math.Round(v*100)/100, v, 1e-9)
	}
	assert.Equal(t, 5.0, sim.Reading(simulator.Tag{Topic: "t", Min: 5, Max: 5}))
}

func TestSimulator_TickReportsPublishErrors(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	sim, err := simulator.New(simulator.DefaultTags[:1], pub, zerolog.Nop())
	require.NoError(t, err)

	err = sim.Tick(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestSimulator_RunUntilCancelled(t *testing.T) {
	pub := &mockPublisher{}
	sim, err := simulator.New(simulator.DefaultTags, pub, zerolog.Nop(), simulator.WithInterval(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	require.Eventually(t, func() bool { return pub.count() >= 2*len(simulator.DefaultTags) }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("simulator did not stop")
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := simulator.New(simulator.DefaultTags, nil, zerolog.Nop())
	assert.Error(t, err)
	_, err = simulator.New(nil, &mockPublisher{}, zerolog.Nop())
	assert.Error(t, err)
	_, err = simulator.New([]simulator.Tag{{Topic: "t", Min: 2, Max: 1}}, &mockPublisher{}, zerolog.Nop())
	assert.Error(t, err)
	_, err = simulator.New([]simulator.Tag{{Min: 0, Max: 1}}, &mockPublisher{}, zerolog.Nop())
	assert.Error(t, err)
}
