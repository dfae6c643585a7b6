package favorites

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curator/config"
	"curator/internal/core"
	"curator/internal/storage"
)

func item(name string) core.RecommendationItem {
	return core.RecommendationItem{
		Name:        name,
		Reason:      "reason for " + name,
		Features:    []string{"a", "b"},
		ImageURL:    "https://img.example/" + name,
		OfficialURL: "https://open.spotify.com/search/" + name,
	}
}

// runStoreContract exercises the behavior every Store implementation shares.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	added, err := store.Add(ctx, "alice", item("YOASOBI"))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = store.Add(ctx, "alice", core.RecommendationItem{Name: "YOASOBI", Reason: "duplicate"})
	require.NoError(t, err)
	assert.False(t, added, "adding the same name twice is a no-op")

	for _, name := range []string{"King Gnu", "Ado"} {
		added, err = store.Add(ctx, "alice", item(name))
		require.NoError(t, err)
		require.True(t, added)
	}
	added, err = store.Add(ctx, "bob", item("YOASOBI"))
	require.NoError(t, err)
	assert.True(t, added, "owners are independent")

	list, err := store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "YOASOBI", list[0].Name)
	assert.Equal(t, "reason for YOASOBI", list[0].Reason, "the first add wins")
	assert.Equal(t, "King Gnu", list[1].Name)
	assert.Equal(t, "Ado", list[2].Name)
	assert.Equal(t, []string{"a", "b"}, list[0].Features)
	assert.False(t, list[0].AddedAt.IsZero())

	fav, err := store.Get(ctx, "alice", "King Gnu")
	require.NoError(t, err)
	assert.Equal(t, item("King Gnu"), fav.RecommendationItem)

	_, err = store.Get(ctx, "alice", "Perfume")
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err := store.Remove(ctx, "alice", "King Gnu")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Remove(ctx, "alice", "King Gnu")
	require.NoError(t, err)
	assert.False(t, removed)

	list, err = store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "YOASOBI", list[0].Name)
	assert.Equal(t, "Ado", list[1].Name)

	empty, err := store.List(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = store.Add(ctx, "", item("x"))
	assert.True(t, core.IsType(err, core.ErrorTypeInvalidRequest))
	_, err = store.Add(ctx, "alice", core.RecommendationItem{Name: "  "})
	assert.True(t, core.IsType(err, core.ErrorTypeInvalidRequest))
}

func TestSerializeItem_NilFeatures(t *testing.T) {
	raw, err := serializeItem(core.RecommendationItem{Name: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"features":[]`)

	got, err := deserializeItem(raw)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Name)
	assert.NotNil(t, got.Features)
}

func TestDeserializeItem_Empty(t *testing.T) {
	_, err := deserializeItem(nil)
	assert.Error(t, err)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config is required")
}

func TestNew_Memory(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Type: "memory"}}

	result, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer result.Close()

	assert.IsType(t, &MemoryStore{}, result.Store)
	assert.Nil(t, result.DB)
}

func TestNew_SQLite(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "favorites.db")},
	}}

	result, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer result.Close()

	assert.IsType(t, &SQLiteStore{}, result.Store)
	require.NotNil(t, result.DB)
	assert.Equal(t, storage.TypeSQLite, result.DB.Type)

	versions, err := result.DB.AppliedVersions(context.Background(), Schema.Feature)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)
}

func TestNew_SQLiteReopenKeepsFavorites(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "favorites.db")},
	}}
	ctx := context.Background()

	first, err := New(ctx, cfg)
	require.NoError(t, err)
	_, err = first.Store.Add(ctx, "alice", item("Ado"))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(ctx, cfg)
	require.NoError(t, err)
	defer second.Close()

	list, err := second.Store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ado", list[0].Name)
}

func TestNewWithSharedStorage(t *testing.T) {
	_, err := NewWithSharedStorage(context.Background(), nil)
	require.Error(t, err)

	shared, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)
	defer shared.Close()

	result, err := NewWithSharedStorage(context.Background(), shared)
	require.NoError(t, err)
	assert.Nil(t, result.DB, "shared storage stays owned by the caller")
	require.NoError(t, result.Close())
	assert.NoError(t, shared.SQL.Ping())
}

func TestNewWithSharedStorage_UnknownType(t *testing.T) {
	_, err := NewWithSharedStorage(context.Background(), &storage.DB{Type: "dynamodb"})
	assert.ErrorContains(t, err, "unknown storage type")
}
