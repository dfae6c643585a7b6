package favorites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"curator/internal/core"
)

type mongoFavoriteDocument struct {
	ID      bson.ObjectID `bson:"_id,omitempty"`
	Owner   string        `bson:"owner"`
	Name    string        `bson:"name"`
	AddedAt int64         `bson:"added_at"`
	Data    []byte        `bson:"data"`
}

func (d mongoFavoriteDocument) favorite() (Favorite, error) {
	item, err := deserializeItem(d.Data)
	if err != nil {
		return Favorite{}, err
	}
	return Favorite{RecommendationItem: item, AddedAt: time.UnixMilli(d.AddedAt).UTC()}, nil
}

// MongoDBStore stores favorites in MongoDB.
type MongoDBStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoDBStore wraps the favorites collection of database.
func NewMongoDBStore(database *mongo.Database) (*MongoDBStore, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &MongoDBStore{collection: database.Collection(collectionName), now: time.Now}, nil
}

// Add upserts a favorite; an existing item with the same name is left untouched.
func (s *MongoDBStore) Add(ctx context.Context, owner string, item core.RecommendationItem) (bool, error) {
	if err := validateKey(owner, item.Name); err != nil {
		return false, err
	}
	payload, err := serializeItem(item)
	if err != nil {
		return false, err
	}

	result, err := s.collection.UpdateOne(ctx,
		bson.M{"owner": owner, "name": item.Name},
		bson.M{"$setOnInsert": bson.M{
			"added_at": s.now().UnixMilli(),
			"data":     payload,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert favorite: %w", err)
	}
	return result.UpsertedCount > 0, nil
}

// Remove deletes one favorite by name.
func (s *MongoDBStore) Remove(ctx context.Context, owner, name string) (bool, error) {
	if err := validateKey(owner, name); err != nil {
		return false, err
	}
	result, err := s.collection.DeleteOne(ctx, bson.M{"owner": owner, "name": name})
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// Get returns one favorite by name.
func (s *MongoDBStore) Get(ctx context.Context, owner, name string) (*Favorite, error) {
	if err := validateKey(owner, name); err != nil {
		return nil, err
	}

	var doc mongoFavoriteDocument
	err := s.collection.FindOne(ctx, bson.M{"owner": owner, "name": name}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query favorite: %w", err)
	}

	fav, err := doc.favorite()
	if err != nil {
		return nil, fmt.Errorf("decode favorite: %w", err)
	}
	return &fav, nil
}

// List returns the owner's favorites in insertion order.
func (s *MongoDBStore) List(ctx context.Context, owner string) ([]Favorite, error) {
	opts := options.Find().SetSort(bson.D{{Key: "added_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]Favorite, 0)
	for cursor.Next(ctx) {
		var doc mongoFavoriteDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode favorite document: %w", err)
		}
		fav, err := doc.favorite()
		if err != nil {
			return nil, fmt.Errorf("decode favorite payload: %w", err)
		}
		out = append(out, fav)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites cursor: %w", err)
	}
	return out, nil
}

// Close is a no-op; Mongo client lifecycle is managed by storage layer.
func (s *MongoDBStore) Close() error {
	return nil
}
