package gateway

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/illmade-knight/uns-gateway/pkg/tagmap"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// LoadMapping builds the tag mapping from the configured source. Clients opened
// to read the mapping are closed before it returns; the mapping is never reloaded.
func LoadMapping(ctx context.Context, cfg *Config, logger zerolog.Logger, opts ...option.ClientOption) (*tagmap.Map, error) {
	var (
		tags *tagmap.Map
		err  error
	)
	switch cfg.Mapping.Source {
	case MappingSourceFile:
		tags, err = tagmap.FileSource{Path: cfg.Mapping.File}.Load(ctx)
	case MappingSourceFirestore:
		tags, err = loadFirestoreMapping(ctx, cfg, logger, opts...)
	case MappingSourceRedis:
		tags, err = loadRedisMapping(ctx, cfg, logger)
	default:
		return nil, &tagmap.ConfigError{Source: cfg.Mapping.Source, Reason: "unknown mapping source"}
	}
	if err != nil {
		return nil, err
	}
	logger.Info().Str("source", cfg.Mapping.Source).Int("tag_count", tags.Len()).Msg("Loaded tag mappings.")
	return tags, nil
}

func loadFirestoreMapping(ctx context.Context, cfg *Config, logger zerolog.Logger, opts ...option.ClientOption) (*tagmap.Map, error) {
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.Mapping.Firestore.ProjectID, opts...)
	if err != nil {
		return nil, &tagmap.ConfigError{Source: "firestore", Reason: "failed to create client", Err: err}
	}
	defer func() { _ = client.Close() }()

	source, err := tagmap.NewFirestoreSource(&cfg.Mapping.Firestore, client, logger)
	if err != nil {
		return nil, fmt.Errorf("firestore mapping source: %w", err)
	}
	return source.Load(ctx)
}

func loadRedisMapping(ctx context.Context, cfg *Config, logger zerolog.Logger) (*tagmap.Map, error) {
	source, err := tagmap.NewRedisSource(ctx, &cfg.Mapping.Redis, logger)
	if err != nil {
		return nil, &tagmap.ConfigError{Source: "redis:" + cfg.Mapping.Redis.Addr, Reason: "cannot reach redis", Err: err}
	}
	defer func() { _ = source.Close() }()
	return source.Load(ctx)
}
