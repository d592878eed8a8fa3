package tagmap

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
)

// FirestoreConfig holds configuration for the Firestore mapping source.
type FirestoreConfig struct {
	ProjectID      string `yaml:"project_id"`
	CollectionName string `yaml:"collection"`
}

// firestoreTag is one document of the mapping collection. Legacy topics contain
// slashes, which Firestore forbids in document IDs, so the topic is a field.
type firestoreTag struct {
	LegacyTopic string `firestore:"legacy_topic"`
	Entry
}

// FirestoreSource loads the mapping from every document of a collection.
type FirestoreSource struct {
	client         *firestore.Client
	collectionName string
	logger         zerolog.Logger
}

// NewFirestoreSource creates a FirestoreSource. The client's lifecycle is
// managed by the caller.
func NewFirestoreSource(cfg *FirestoreConfig, client *firestore.Client, logger zerolog.Logger) (*FirestoreSource, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("firestore collection name is required")
	}
	return &FirestoreSource{
		client:         client,
		collectionName: cfg.CollectionName,
		logger:         logger.With().Str("component", "FirestoreTagSource").Str("collection", cfg.CollectionName).Logger(),
	}, nil
}

// Load implements Source.
func (s *FirestoreSource) Load(ctx context.Context) (*Map, error) {
	source := "firestore:" + s.collectionName
	docs, err := s.client.Collection(s.collectionName).Documents(ctx).GetAll()
	if err != nil {
		return nil, &ConfigError{Source: source, Reason: "failed to list documents", Err: err}
	}

	entries := make(map[string]Entry, len(docs))
	for _, doc := range docs {
		var tag firestoreTag
		if err := doc.DataTo(&tag); err != nil {
			return nil, &ConfigError{Source: source, Reason: fmt.Sprintf("document %s is malformed", doc.Ref.ID), Err: err}
		}
		if tag.LegacyTopic == "" {
			return nil, &ConfigError{Source: source, Reason: fmt.Sprintf("document %s has no legacy_topic", doc.Ref.ID)}
		}
		if _, dup := entries[tag.LegacyTopic]; dup {
			return nil, &ConfigError{Source: source, Reason: fmt.Sprintf("legacy topic %q is mapped twice", tag.LegacyTopic)}
		}
		entries[tag.LegacyTopic] = tag.Entry
	}

	s.logger.Debug().Int("documents", len(docs)).Msg("Fetched tag mappings from Firestore.")
	return New(source, entries)
}
