package favorites

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"curator/internal/storage"
)

const collectionName = "favorites"

// Schema is the favorites table (or collection) and its indexes.
// seq keeps insertion order so List can return oldest first.
var Schema = storage.Schema{
	Feature: "favorites",
	SQLite: []storage.Step{
		{Version: 1, SQL: `CREATE TABLE IF NOT EXISTS favorites (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			added_at INTEGER NOT NULL,
			data TEXT NOT NULL,
			UNIQUE (owner, name)
		)`},
		{Version: 2, SQL: `CREATE INDEX IF NOT EXISTS idx_favorites_owner ON favorites(owner, seq)`},
	},
	PostgreSQL: []storage.Step{
		{Version: 1, SQL: `CREATE TABLE IF NOT EXISTS favorites (
			seq BIGSERIAL PRIMARY KEY,
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			added_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			data JSONB NOT NULL,
			UNIQUE (owner, name)
		)`},
		{Version: 2, SQL: `CREATE INDEX IF NOT EXISTS idx_favorites_owner ON favorites(owner, seq)`},
	},
	MongoDB: []storage.MongoStep{
		{Version: 1, Apply: func(ctx context.Context, db *mongo.Database) error {
			_, err := db.Collection(collectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "name", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
				{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "added_at", Value: 1}}},
			})
			return err
		}},
	},
}
