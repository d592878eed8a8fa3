package tagmap

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the configuration for the Redis mapping source.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Key is the hash holding one field per legacy topic, each value a JSON Entry.
	Key string `yaml:"key"`
}

// DefaultRedisKey is used when RedisConfig.Key is empty.
const DefaultRedisKey = "uns:tagmap"

// RedisSource loads the mapping from a single Redis hash.
type RedisSource struct {
	redisClient *redis.Client
	key         string
	logger      zerolog.Logger
}

// NewRedisSource connects to Redis and pings it before returning.
func NewRedisSource(ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*RedisSource, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis.")

	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSource{
		redisClient: rdb,
		key:         key,
		logger:      logger.With().Str("component", "RedisTagSource").Str("key", key).Logger(),
	}, nil
}

// Load implements Source.
func (s *RedisSource) Load(ctx context.Context) (*Map, error) {
	source := "redis:" + s.key
	fields, err := s.redisClient.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, &ConfigError{Source: source, Reason: "failed to read hash", Err: err}
	}

	entries := make(map[string]Entry, len(fields))
	for topic, raw := range fields {
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, &ConfigError{Source: source, Reason: fmt.Sprintf("entry for %q is not valid JSON", topic), Err: err}
		}
		entries[topic] = entry
	}

	s.logger.Debug().Int("fields", len(fields)).Msg("Fetched tag mappings from Redis.")
	return New(source, entries)
}

// Close closes the Redis client connection.
func (s *RedisSource) Close() error {
	if s.redisClient != nil {
		s.logger.Info().Msg("Closing Redis client connection...")
		return s.redisClient.Close()
	}
	return nil
}
