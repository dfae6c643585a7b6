package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPostgreSQL creates a connection pool for rawURL and checks it with a ping.
func OpenPostgreSQL(ctx context.Context, rawURL string, maxConns int) (*DB, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("PostgreSQL URL is required")
	}
	poolCfg, err := pgxpool.ParseConfig(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL URL: %w", err)
	}
	poolCfg.MaxConns = DefaultPostgresConns
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "curator"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return &DB{Type: TypePostgreSQL, Pool: pool}, nil
}
