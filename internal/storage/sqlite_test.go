package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curator/config"
)

func openTestSQLite(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenSQLite_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "curator.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, TypeSQLite, db.Type)
	assert.NotNil(t, db.SQL)
	assert.Nil(t, db.Pool)
	assert.Nil(t, db.Mongo)
	assert.FileExists(t, path)
}

func TestOpenSQLite_AppliesPragmas(t *testing.T) {
	db := openTestSQLite(t)

	var mode string
	require.NoError(t, db.SQL.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, db.SQL.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout))
	assert.Equal(t, 5000, timeout)

	// NORMAL is 1.
	var synchronous int
	require.NoError(t, db.SQL.QueryRow(`PRAGMA synchronous`).Scan(&synchronous))
	assert.Equal(t, 1, synchronous)
}

func TestOpen_SelectsEngine(t *testing.T) {
	cfg := config.StorageConfig{Type: "SQLite"}
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "curator.db")

	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, TypeSQLite, db.Type)
}

func TestOpen_UnknownType(t *testing.T) {
	for _, typ := range []string{"dynamodb", "memory", ""} {
		_, err := Open(context.Background(), config.StorageConfig{Type: typ})
		require.Error(t, err, typ)
		assert.Contains(t, err.Error(), "unknown storage type")
	}
}

func TestOpen_RequiresURLs(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Type: TypePostgreSQL})
	assert.ErrorContains(t, err, "PostgreSQL URL is required")

	_, err = Open(context.Background(), config.StorageConfig{Type: TypeMongoDB})
	assert.ErrorContains(t, err, "MongoDB URL is required")
}

func TestClose_Twice(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	require.NoError(t, db.Close())
	assert.NoError(t, db.Close())
}

var watchlistSchema = Schema{
	Feature: "watchlist",
	SQLite: []Step{
		{Version: 1, SQL: `CREATE TABLE watchlist (owner TEXT NOT NULL, name TEXT NOT NULL)`},
		{Version: 2, SQL: `CREATE INDEX idx_watchlist_owner ON watchlist(owner)`},
	},
}

func TestBootstrap_AppliesStepsOnce(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, db.Bootstrap(ctx, watchlistSchema))
	// A plain CREATE TABLE would fail if step 1 ran again.
	require.NoError(t, db.Bootstrap(ctx, watchlistSchema))

	versions, err := db.AppliedVersions(ctx, "watchlist")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)

	_, err = db.SQL.Exec(`INSERT INTO watchlist (owner, name) VALUES ('u1', 'Inception')`)
	assert.NoError(t, err)
}

func TestBootstrap_AppliesOnlyNewSteps(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()

	first := Schema{Feature: "watchlist", SQLite: watchlistSchema.SQLite[:1]}
	require.NoError(t, db.Bootstrap(ctx, first))

	versions, err := db.AppliedVersions(ctx, "watchlist")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, versions)

	require.NoError(t, db.Bootstrap(ctx, watchlistSchema))
	versions, err = db.AppliedVersions(ctx, "watchlist")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)
}

func TestBootstrap_OrdersStepsByVersion(t *testing.T) {
	db := openTestSQLite(t)

	reversed := Schema{Feature: "watchlist", SQLite: []Step{
		watchlistSchema.SQLite[1],
		watchlistSchema.SQLite[0],
	}}
	require.NoError(t, db.Bootstrap(context.Background(), reversed))
}

func TestBootstrap_FailedStepRollsBack(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()

	broken := Schema{Feature: "watchlist", SQLite: []Step{
		watchlistSchema.SQLite[0],
		{Version: 2, SQL: `CREATE INDEX idx_broken ON missing_table(owner)`},
	}}
	err := db.Bootstrap(ctx, broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bootstrap watchlist schema")
	assert.Contains(t, err.Error(), "version 2")

	var tables int
	require.NoError(t, db.SQL.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('watchlist', 'schema_migrations')`,
	).Scan(&tables))
	assert.Zero(t, tables)

	// The good schema still applies cleanly afterwards.
	require.NoError(t, db.Bootstrap(ctx, watchlistSchema))
}

func TestBootstrap_FeaturesAreIndependent(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, db.Bootstrap(ctx, watchlistSchema))
	require.NoError(t, db.Bootstrap(ctx, Schema{Feature: "history", SQLite: []Step{
		{Version: 1, SQL: `CREATE TABLE history (owner TEXT NOT NULL)`},
	}}))

	versions, err := db.AppliedVersions(ctx, "history")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, versions)
}

func TestBootstrap_RequiresFeature(t *testing.T) {
	db := openTestSQLite(t)
	assert.Error(t, db.Bootstrap(context.Background(), Schema{}))
}

func TestBootstrap_UnknownType(t *testing.T) {
	db := &DB{Type: "memory"}
	err := db.Bootstrap(context.Background(), watchlistSchema)
	assert.ErrorContains(t, err, "unknown storage type")
}

func TestSQLiteConcurrentWriteSafety(t *testing.T) {
	db := openTestSQLite(t)
	require.NoError(t, db.Bootstrap(context.Background(), Schema{Feature: "test", SQLite: []Step{
		{Version: 1, SQL: `CREATE TABLE test_favorites (owner TEXT NOT NULL, name TEXT NOT NULL, PRIMARY KEY (owner, name))`},
	}}))

	const owners = 8
	const perOwner = 25

	var wg sync.WaitGroup
	errs := make(chan error, owners*perOwner)
	for i := 0; i < owners; i++ {
		wg.Add(1)
		go func(owner int) {
			defer wg.Done()
			for j := 0; j < perOwner; j++ {
				_, err := db.SQL.ExecContext(context.Background(),
					`INSERT INTO test_favorites (owner, name) VALUES (?, ?)`,
					fmt.Sprintf("user-%d", owner), fmt.Sprintf("item-%d", j))
				if err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent write error: %v", err)
	}

	var count int
	require.NoError(t, db.SQL.QueryRow("SELECT COUNT(*) FROM test_favorites").Scan(&count))
	assert.Equal(t, owners*perOwner, count)
}
