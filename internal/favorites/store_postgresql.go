package favorites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"curator/internal/core"
)

// PostgreSQLStore stores favorites in PostgreSQL.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLStore wraps pool. The favorites schema must already be bootstrapped.
func NewPostgreSQLStore(pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}
	return &PostgreSQLStore{pool: pool}, nil
}

// Add inserts a favorite unless the owner already saved one with the same name.
func (s *PostgreSQLStore) Add(ctx context.Context, owner string, item core.RecommendationItem) (bool, error) {
	if err := validateKey(owner, item.Name); err != nil {
		return false, err
	}
	payload, err := serializeItem(item)
	if err != nil {
		return false, err
	}

	cmd, err := s.pool.Exec(ctx, `
		INSERT INTO favorites (owner, name, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (owner, name) DO NOTHING
	`, owner, item.Name, payload)
	if err != nil {
		return false, fmt.Errorf("insert favorite: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

// Remove deletes one favorite by name.
func (s *PostgreSQLStore) Remove(ctx context.Context, owner, name string) (bool, error) {
	if err := validateKey(owner, name); err != nil {
		return false, err
	}
	cmd, err := s.pool.Exec(ctx, "DELETE FROM favorites WHERE owner = $1 AND name = $2", owner, name)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

// Get returns one favorite by name.
func (s *PostgreSQLStore) Get(ctx context.Context, owner, name string) (*Favorite, error) {
	if err := validateKey(owner, name); err != nil {
		return nil, err
	}

	var addedAt time.Time
	var payload []byte
	err := s.pool.QueryRow(ctx,
		"SELECT added_at, data FROM favorites WHERE owner = $1 AND name = $2", owner, name,
	).Scan(&addedAt, &payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query favorite: %w", err)
	}

	item, err := deserializeItem(payload)
	if err != nil {
		return nil, fmt.Errorf("decode favorite: %w", err)
	}
	return &Favorite{RecommendationItem: item, AddedAt: addedAt.UTC()}, nil
}

// List returns the owner's favorites in insertion order.
func (s *PostgreSQLStore) List(ctx context.Context, owner string) ([]Favorite, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT added_at, data
		FROM favorites
		WHERE owner = $1
		ORDER BY seq ASC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	out := make([]Favorite, 0)
	for rows.Next() {
		var addedAt time.Time
		var payload []byte
		if err := rows.Scan(&addedAt, &payload); err != nil {
			return nil, fmt.Errorf("scan favorite row: %w", err)
		}
		item, err := deserializeItem(payload)
		if err != nil {
			return nil, fmt.Errorf("decode favorite row: %w", err)
		}
		out = append(out, Favorite{RecommendationItem: item, AddedAt: addedAt.UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorite rows: %w", err)
	}
	return out, nil
}

// Close is a no-op; pool lifecycle is managed by storage layer.
func (s *PostgreSQLStore) Close() error {
	return nil
}
