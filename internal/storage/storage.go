// Package storage opens the database behind persistent features and brings
// each feature's schema up to date before the feature uses it.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"curator/config"
)

// Database engines.
const (
	TypeSQLite     = "sqlite"
	TypePostgreSQL = "postgresql"
	TypeMongoDB    = "mongodb"
)

// Defaults applied when the corresponding setting is empty.
const (
	DefaultSQLitePath      = "data/curator.db"
	DefaultMongoDBDatabase = "curator"
	DefaultPostgresConns   = 10
)

// connectTimeout bounds the initial ping of a server database.
const connectTimeout = 10 * time.Second

// DB is one open database. Exactly one of SQL, Pool and Mongo is set, matching Type.
// A DB is safe for concurrent use.
type DB struct {
	Type  string
	SQL   *sql.DB
	Pool  *pgxpool.Pool
	Mongo *mongo.Database

	client    *mongo.Client
	closeOnce sync.Once
	closeErr  error
}

// Open connects to the database selected by cfg.Type.
// "memory" is not a database; callers handle it before calling Open.
func Open(ctx context.Context, cfg config.StorageConfig) (*DB, error) {
	switch strings.ToLower(cfg.Type) {
	case TypeSQLite:
		return OpenSQLite(cfg.SQLite.Path)
	case TypePostgreSQL:
		return OpenPostgreSQL(ctx, cfg.PostgreSQL.URL, cfg.PostgreSQL.MaxConns)
	case TypeMongoDB:
		return OpenMongoDB(ctx, cfg.MongoDB.URL, cfg.MongoDB.Database)
	default:
		return nil, fmt.Errorf("unknown storage type: %s (valid: sqlite, postgresql, mongodb)", cfg.Type)
	}
}

// Close releases the connection. It is safe to call more than once.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}
	db.closeOnce.Do(func() {
		var errs []error
		if db.SQL != nil {
			errs = append(errs, db.SQL.Close())
		}
		if db.Pool != nil {
			db.Pool.Close()
		}
		if db.client != nil {
			ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			errs = append(errs, db.client.Disconnect(ctx))
			cancel()
		}
		db.closeErr = errors.Join(errs...)
	})
	return db.closeErr
}
