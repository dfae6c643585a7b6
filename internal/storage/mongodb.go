package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// OpenMongoDB connects to rawURL and selects database (default "curator").
func OpenMongoDB(ctx context.Context, rawURL, database string) (*DB, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("MongoDB URL is required")
	}
	if database == "" {
		database = DefaultMongoDBDatabase
	}

	opts := options.Client().
		ApplyURI(rawURL).
		SetAppName("curator").
		SetServerSelectionTimeout(connectTimeout)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &DB{Type: TypeMongoDB, Mongo: client.Database(database), client: client}, nil
}
