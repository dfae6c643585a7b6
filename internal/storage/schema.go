package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jackc/pgx/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// migrationsTable records which schema steps have run, per feature.
const migrationsTable = "schema_migrations"

// bootstrapLockKey serializes schema bootstrap across processes sharing a PostgreSQL database.
var bootstrapLockKey = int64(xxhash.Sum64String("curator." + migrationsTable))

// Step is one versioned SQL change. Versions are unique within a feature and
// applied in ascending order; a step runs at most once per database.
type Step struct {
	Version int
	SQL     string
}

// MongoStep is the MongoDB counterpart of Step.
type MongoStep struct {
	Version int
	Apply   func(ctx context.Context, db *mongo.Database) error
}

// Schema is everything a feature needs from the database, per engine.
type Schema struct {
	Feature    string
	SQLite     []Step
	PostgreSQL []Step
	MongoDB    []MongoStep
}

// Bootstrap applies the steps of s that have not yet run on db.
// SQL steps run in one transaction: either all pending steps land or none do.
func (db *DB) Bootstrap(ctx context.Context, s Schema) error {
	if s.Feature == "" {
		return fmt.Errorf("schema feature name is required")
	}
	var err error
	switch db.Type {
	case TypeSQLite:
		err = db.bootstrapSQLite(ctx, s.Feature, sortSteps(s.SQLite))
	case TypePostgreSQL:
		err = db.bootstrapPostgreSQL(ctx, s.Feature, sortSteps(s.PostgreSQL))
	case TypeMongoDB:
		err = db.bootstrapMongoDB(ctx, s.Feature, s.MongoDB)
	default:
		err = fmt.Errorf("unknown storage type: %s", db.Type)
	}
	if err != nil {
		return fmt.Errorf("bootstrap %s schema: %w", s.Feature, err)
	}
	return nil
}

// AppliedVersions lists the recorded versions of feature in ascending order.
func (db *DB) AppliedVersions(ctx context.Context, feature string) ([]int, error) {
	switch db.Type {
	case TypeSQLite:
		return sqlVersions(ctx, db.SQL, feature)
	case TypePostgreSQL:
		rows, err := db.Pool.Query(ctx,
			`SELECT version FROM `+migrationsTable+` WHERE feature = $1 ORDER BY version`, feature)
		if err != nil {
			return nil, err
		}
		return pgx.CollectRows(rows, pgx.RowTo[int])
	case TypeMongoDB:
		return mongoVersions(ctx, db.Mongo, feature)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", db.Type)
	}
}

func (db *DB) bootstrapSQLite(ctx context.Context, feature string, steps []Step) error {
	tx, err := db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
		feature TEXT NOT NULL,
		version INTEGER NOT NULL,
		applied_at INTEGER NOT NULL,
		PRIMARY KEY (feature, version)
	)`); err != nil {
		return err
	}
	applied, err := sqlApplied(ctx, tx, feature)
	if err != nil {
		return err
	}
	for _, step := range steps {
		if applied[step.Version] {
			continue
		}
		if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
			return fmt.Errorf("version %d: %w", step.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+migrationsTable+` (feature, version, applied_at) VALUES (?, ?, ?)`,
			feature, step.Version, time.Now().UTC().Unix()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (db *DB) bootstrapPostgreSQL(ctx context.Context, feature string, steps []Step) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Held until commit; a second replica waits here and then finds the steps recorded.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
		feature TEXT NOT NULL,
		version INTEGER NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (feature, version)
	)`); err != nil {
		return err
	}

	rows, err := tx.Query(ctx, `SELECT version FROM `+migrationsTable+` WHERE feature = $1`, feature)
	if err != nil {
		return err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return err
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	for _, step := range steps {
		if applied[step.Version] {
			continue
		}
		if _, err := tx.Exec(ctx, step.SQL); err != nil {
			return fmt.Errorf("version %d: %w", step.Version, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO `+migrationsTable+` (feature, version) VALUES ($1, $2)`,
			feature, step.Version); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// MongoDB steps are not transactional. Each step is recorded after it succeeds,
// so steps must be safe to re-run (index creation is).
func (db *DB) bootstrapMongoDB(ctx context.Context, feature string, steps []MongoStep) error {
	steps = append([]MongoStep(nil), steps...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Version < steps[j].Version })

	versions, err := mongoVersions(ctx, db.Mongo, feature)
	if err != nil {
		return err
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	coll := db.Mongo.Collection(migrationsTable)
	for _, step := range steps {
		if applied[step.Version] {
			continue
		}
		if err := step.Apply(ctx, db.Mongo); err != nil {
			return fmt.Errorf("version %d: %w", step.Version, err)
		}
		_, err := coll.InsertOne(ctx, bson.D{
			{Key: "_id", Value: fmt.Sprintf("%s:%d", feature, step.Version)},
			{Key: "feature", Value: feature},
			{Key: "version", Value: step.Version},
			{Key: "applied_at", Value: time.Now().UTC()},
		})
		if err != nil && !mongo.IsDuplicateKeyError(err) {
			return err
		}
	}
	return nil
}

type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func sqlApplied(ctx context.Context, q sqlQuerier, feature string) (map[int]bool, error) {
	versions, err := sqlVersions(ctx, q, feature)
	if err != nil {
		return nil, err
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

func sqlVersions(ctx context.Context, q sqlQuerier, feature string) ([]int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT version FROM `+migrationsTable+` WHERE feature = ? ORDER BY version`, feature)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func mongoVersions(ctx context.Context, db *mongo.Database, feature string) ([]int, error) {
	cursor, err := db.Collection(migrationsTable).Find(ctx, bson.D{{Key: "feature", Value: feature}})
	if err != nil {
		return nil, err
	}
	var docs []struct {
		Version int `bson:"version"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	versions := make([]int, 0, len(docs))
	for _, d := range docs {
		versions = append(versions, d.Version)
	}
	sort.Ints(versions)
	return versions, nil
}

func sortSteps(steps []Step) []Step {
	sorted := append([]Step(nil), steps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return sorted
}
