//go:build integration

// Package dbassert reads persisted favorites straight from the databases so
// integration tests can check what the API actually stored.
package dbassert

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// FavoriteRow is one stored favorite, decoded for assertions.
type FavoriteRow struct {
	Owner string
	Name  string
	Data  map[string]any
}

// QueryFavoritesPostgreSQL returns owner's favorites in insertion order.
func QueryFavoritesPostgreSQL(t *testing.T, pool *pgxpool.Pool, owner string) []FavoriteRow {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := pool.Query(ctx, `SELECT owner, name, data FROM favorites WHERE owner = $1 ORDER BY seq`, owner)
	require.NoError(t, err)
	defer rows.Close()

	var out []FavoriteRow
	for rows.Next() {
		var (
			row FavoriteRow
			raw []byte
		)
		require.NoError(t, rows.Scan(&row.Owner, &row.Name, &raw))
		require.NoError(t, json.Unmarshal(raw, &row.Data))
		out = append(out, row)
	}
	require.NoError(t, rows.Err())
	return out
}

// ClearFavoritesPostgreSQL deletes every stored favorite.
func ClearFavoritesPostgreSQL(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx, `DELETE FROM favorites`)
	require.NoError(t, err)
}

// QueryFavoritesMongoDB returns owner's favorites in insertion order.
func QueryFavoritesMongoDB(t *testing.T, db *mongo.Database, owner string) []FavoriteRow {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "added_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := db.Collection("favorites").Find(ctx, bson.M{"owner": owner}, opts)
	require.NoError(t, err)
	defer cursor.Close(ctx)

	var out []FavoriteRow
	for cursor.Next(ctx) {
		var doc struct {
			Owner string `bson:"owner"`
			Name  string `bson:"name"`
			Data  []byte `bson:"data"`
		}
		require.NoError(t, cursor.Decode(&doc))
		row := FavoriteRow{Owner: doc.Owner, Name: doc.Name}
		require.NoError(t, json.Unmarshal(doc.Data, &row.Data))
		out = append(out, row)
	}
	require.NoError(t, cursor.Err())
	return out
}

// ClearFavoritesMongoDB deletes every stored favorite.
func ClearFavoritesMongoDB(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := db.Collection("favorites").DeleteMany(ctx, bson.M{})
	require.NoError(t, err)
}
