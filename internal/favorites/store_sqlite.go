package favorites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"curator/internal/core"
)

// SQLiteStore stores favorites in SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore wraps db. The favorites schema must already be bootstrapped.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Add inserts a favorite unless the owner already saved one with the same name.
func (s *SQLiteStore) Add(ctx context.Context, owner string, item core.RecommendationItem) (bool, error) {
	if err := validateKey(owner, item.Name); err != nil {
		return false, err
	}
	payload, err := serializeItem(item)
	if err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (owner, name, added_at, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner, name) DO NOTHING
	`, owner, item.Name, s.now().UnixMilli(), string(payload))
	if err != nil {
		return false, fmt.Errorf("insert favorite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("read insert rows affected: %w", err)
	}
	return affected > 0, nil
}

// Remove deletes one favorite by name.
func (s *SQLiteStore) Remove(ctx context.Context, owner, name string) (bool, error) {
	if err := validateKey(owner, name); err != nil {
		return false, err
	}
	result, err := s.db.ExecContext(ctx, "DELETE FROM favorites WHERE owner = ? AND name = ?", owner, name)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("read delete rows affected: %w", err)
	}
	return affected > 0, nil
}

// Get returns one favorite by name.
func (s *SQLiteStore) Get(ctx context.Context, owner, name string) (*Favorite, error) {
	if err := validateKey(owner, name); err != nil {
		return nil, err
	}

	var addedAt int64
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT added_at, data FROM favorites WHERE owner = ? AND name = ?", owner, name,
	).Scan(&addedAt, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query favorite: %w", err)
	}

	item, err := deserializeItem([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("decode favorite: %w", err)
	}
	return &Favorite{RecommendationItem: item, AddedAt: time.UnixMilli(addedAt).UTC()}, nil
}

// List returns the owner's favorites in insertion order.
func (s *SQLiteStore) List(ctx context.Context, owner string) ([]Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT added_at, data
		FROM favorites
		WHERE owner = ?
		ORDER BY seq ASC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	out := make([]Favorite, 0)
	for rows.Next() {
		var addedAt int64
		var payload string
		if err := rows.Scan(&addedAt, &payload); err != nil {
			return nil, fmt.Errorf("scan favorite row: %w", err)
		}
		item, err := deserializeItem([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("decode favorite row: %w", err)
		}
		out = append(out, Favorite{RecommendationItem: item, AddedAt: time.UnixMilli(addedAt).UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorite rows: %w", err)
	}
	return out, nil
}

// Close is a no-op; DB lifecycle is managed by storage layer.
func (s *SQLiteStore) Close() error {
	return nil
}
