//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"taskflow/internal/platform/config"
	platformmongo "taskflow/internal/platform/mongo"
)

// MongoContainer wraps a testcontainers MongoDB instance with the store
// indexes already created.
type MongoContainer struct {
	Container testcontainers.Container
	URI       string
	Client    *mongo.Client
	DB        *mongo.Database
}

// NewMongoContainer starts MongoDB and creates the indexes the stores use.
func NewMongoContainer(t *testing.T) *MongoContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start mongo container: %v", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get mongo connection string: %v", err)
	}

	client, db, err := platformmongo.Connect(ctx, config.MongoConfig{
		URI:            uri,
		Database:       "taskflow",
		ConnectTimeout: 30 * time.Second,
	})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to mongo: %v", err)
	}
	if err := platformmongo.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		_ = container.Terminate(ctx)
		t.Fatalf("failed to create mongo indexes: %v", err)
	}

	return &MongoContainer{
		Container: container,
		URI:       uri,
		Client:    client,
		DB:        db,
	}
}

// ClearCollections removes every document but keeps the indexes.
func (m *MongoContainer) ClearCollections(ctx context.Context, collections ...string) error {
	for _, name := range collections {
		if _, err := m.DB.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			return err
		}
	}
	return nil
}
