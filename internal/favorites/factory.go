package favorites

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"curator/config"
	"curator/internal/storage"
)

// TypeMemory keeps favorites in process memory without a database.
const TypeMemory = "memory"

// Result holds the initialized favorites store and the database it owns, if any.
type Result struct {
	Store Store
	DB    *storage.DB
}

// Close releases resources held by the favorites store.
func (r *Result) Close() error {
	var errs []error
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}
	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// New opens the configured database, brings the favorites schema up to date
// and returns a store on top of it.
func New(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if t := strings.ToLower(cfg.Storage.Type); t == "" || t == TypeMemory {
		return &Result{Store: NewMemoryStore()}, nil
	}

	db, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	store, err := NewWithSharedStorage(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.DB = db
	return store, nil
}

// NewWithSharedStorage bootstraps the favorites schema on a database owned by the caller.
func NewWithSharedStorage(ctx context.Context, db *storage.DB) (*Result, error) {
	if db == nil {
		return nil, fmt.Errorf("shared storage is required")
	}
	if err := db.Bootstrap(ctx, Schema); err != nil {
		return nil, err
	}
	store, err := createStore(db)
	if err != nil {
		return nil, err
	}
	return &Result{Store: store}, nil
}

func createStore(db *storage.DB) (Store, error) {
	switch db.Type {
	case storage.TypeSQLite:
		return NewSQLiteStore(db.SQL)
	case storage.TypePostgreSQL:
		return NewPostgreSQLStore(db.Pool)
	case storage.TypeMongoDB:
		return NewMongoDBStore(db.Mongo)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", db.Type)
	}
}
