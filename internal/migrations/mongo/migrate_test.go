package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	mongodb "sharebasket/pkg/db/mongo"
	"sharebasket/pkg/logger"
)

func TestCollectionsAreDefined(t *testing.T) {
	defs := collections()
	require.Len(t, defs, 2)
	for _, def := range defs {
		assert.NotEmpty(t, def.Name)
		assert.NotEmpty(t, def.Indexes, def.Name)
		assert.Contains(t, def.Validator, "$jsonSchema", def.Name)
	}
}

func TestRunMigration_Idempotent(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	client, err := mongodb.Connect(ctx, logger.Discard(), uri, 5*time.Second)
	require.NoError(t, err)

	db := client.Database("sharebasket_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	require.NoError(t, RunMigration(ctx, db, logger.Discard()))
	require.NoError(t, RunMigration(ctx, db, logger.Discard()))

	names, err := db.ListCollectionNames(ctx, bson.D{})
	require.NoError(t, err)
	for _, def := range collections() {
		assert.Contains(t, names, def.Name)
	}
}
