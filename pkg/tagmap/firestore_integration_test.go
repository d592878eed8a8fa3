//go:build integration

package tagmap_test

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/illmade-knight/uns-gateway/pkg/tagmap"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirestoreSource_Integration(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	const projectID = "test-project"
	collection := "tags-" + uuid.NewString()

	client, err := firestore.NewClient(ctx, projectID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, _, err = client.Collection(collection).Add(ctx, map[string]interface{}{
		"legacy_topic": "legacy/plc_01/register_4001",
		"unit":         "°C",
		"asset_id":     "oven-01",
		"description":  "Oven Temp",
		"uns_topic":    "enterprise/site/line/oven-01/temperature",
	})
	require.NoError(t, err)

	src, err := tagmap.NewFirestoreSource(&tagmap.FirestoreConfig{ProjectID: projectID, CollectionName: collection}, client, zerolog.Nop())
	require.NoError(t, err)

	m, err := src.Load(ctx)

	require.NoError(t, err)
	entry, ok := m.Lookup("legacy/plc_01/register_4001")
	require.True(t, ok)
	assert.Equal(t, "oven-01", entry.AssetID)
	assert.Equal(t, "enterprise/site/line/oven-01/temperature", entry.UNSTopic)
}
