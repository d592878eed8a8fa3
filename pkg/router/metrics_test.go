package router_test

import (
	"context"
	"testing"

	"github.com/illmade-knight/uns-gateway/pkg/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()
	metrics, err := router.NewMetrics(reg)
	require.NoError(t, err)

	r, err := router.New(newTestTagMap(t), &mockPublisher{}, zerolog.Nop(), router.WithObserver(metrics))
	require.NoError(t, err)
	ctx := context.Background()

	// Act
	r.Handle(ctx, ovenTopic, []byte(`{"v": 1}`))
	r.Handle(ctx, ovenTopic, []byte(`{"v": 2}`))
	r.Handle(ctx, ovenTopic, []byte(`garbage`))
	r.Handle(ctx, "legacy/unmapped", []byte(`{"v": 3}`))

	// Assert
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Count(router.OutcomeTransformed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Count(router.OutcomeDecodeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Count(router.OutcomeUnroutable)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Count(router.OutcomeValidationError)))

	count, err := testutil.GatherAndCount(reg, "uns_gateway_messages_total")
	require.NoError(t, err)
	assert.Equal(t, 5, count, "every outcome series is created up front")
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := router.NewMetrics(reg)
	require.NoError(t, err)

	_, err = router.NewMetrics(reg)
	assert.Error(t, err)
}
