package tagmap_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/illmade-knight/uns-gateway/pkg/tagmap"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSource_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("Loads every hash field", func(t *testing.T) {
		// Arrange
		mr := miniredis.RunT(t)
		mr.HSet(tagmap.DefaultRedisKey,
			"legacy/plc_01/register_4003",
			`{"unit":"bar","asset_id":"press-01","description":"Hydraulic Pressure","uns_topic":"enterprise/site/line/press-01/pressure"}`,
		)

		src, err := tagmap.NewRedisSource(ctx, &tagmap.RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = src.Close() })

		// Act
		m, err := src.Load(ctx)

		// Assert
		require.NoError(t, err)
		entry, ok := m.Lookup("legacy/plc_01/register_4003")
		require.True(t, ok)
		assert.Equal(t, "bar", entry.Unit)
		assert.Equal(t, "enterprise/site/line/press-01/pressure", entry.UNSTopic)
	})

	t.Run("Empty hash is a config error", func(t *testing.T) {
		mr := miniredis.RunT(t)
		src, err := tagmap.NewRedisSource(ctx, &tagmap.RedisConfig{Addr: mr.Addr(), Key: "other"}, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = src.Close() })

		_, err = src.Load(ctx)

		var cfgErr *tagmap.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "redis:other", cfgErr.Source)
	})

	t.Run("Malformed entry is a config error", func(t *testing.T) {
		mr := miniredis.RunT(t)
		mr.HSet(tagmap.DefaultRedisKey, "legacy/x", "not-json")
		src, err := tagmap.NewRedisSource(ctx, &tagmap.RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = src.Close() })

		_, err = src.Load(ctx)

		var cfgErr *tagmap.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, `"legacy/x"`)
	})

	t.Run("Unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := tagmap.NewRedisSource(ctx, &tagmap.RedisConfig{Addr: addr}, zerolog.Nop())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to redis")
	})
}
