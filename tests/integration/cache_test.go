//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curator/internal/cache"
	"curator/internal/core"
	"curator/internal/token"
)

func newRedisBackend(t *testing.T) *cache.RedisBackend {
	t.Helper()
	backend, err := cache.NewRedisBackend(cache.RedisConfig{URL: GetRedisURL(), Prefix: uniquePrefix()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestRedisBackend_SetGetDelete(t *testing.T) {
	backend := newRedisBackend(t)
	ctx := context.Background()

	_, ok, err := backend.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Set(ctx, "k", []byte("v"), time.Minute))
	got, ok, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, backend.Delete(ctx, "k"))
	_, ok, err = backend.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisBackend_Expiry(t *testing.T) {
	backend := newRedisBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "short", []byte("v"), time.Second))
	require.Eventually(t, func() bool {
		_, ok, err := backend.Get(ctx, "short")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestRedisStore_SharedBetweenStores(t *testing.T) {
	backend := newRedisBackend(t)
	ctx := context.Background()

	writer := cache.NewStore[string](backend, cache.StoreConfig{Name: "image", TTL: time.Minute})
	reader := cache.NewStore[string](backend, cache.StoreConfig{Name: "image", TTL: time.Minute})

	key := cache.ImageKey("米津玄師", core.StrategyArtist)
	writer.Put(ctx, key, "https://img.example/a.jpg")

	entry, ok := reader.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "https://img.example/a.jpg", entry.Value)
}

func TestRedisTokenStore_SharedToken(t *testing.T) {
	backend := newRedisBackend(t)
	ctx := context.Background()

	var grants int
	grant := func(context.Context) (string, time.Duration, error) {
		grants++
		return "shared-token", time.Hour, nil
	}

	first := token.NewManager(token.Config{Provider: "spotify", Grant: grant, Store: token.NewBackendStore(backend, "spotify")})
	second := token.NewManager(token.Config{Provider: "spotify", Grant: grant, Store: token.NewBackendStore(backend, "spotify")})

	tok, err := first.EnsureValidToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "shared-token", tok)

	tok, err = second.EnsureValidToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "shared-token", tok)
	assert.Equal(t, 1, grants)
}

func TestRecommendations_RedisCacheSharedAcrossInstances(t *testing.T) {
	prefix := uniquePrefix()
	query := "/v1/recommendations?q=" + url.QueryEscape("ずっと真夜中でいいのに。")

	first := SetupTestServer(t, TestServerConfig{DBType: "memory", CacheType: "redis", RedisPrefix: prefix})
	recs := decodeBody[core.Recommendations](t, doJSON(t, http.MethodGet, first.ServerURL+query, nil, nil))
	require.Len(t, recs.Artists, 2)
	assert.Equal(t, "候補A", recs.Artists[0].Name)
	assert.Equal(t, core.PlaceholderImage, recs.Artists[0].ImageURL)
	assert.Equal(t, int64(len(core.Categories)), first.MockLLM.Calls())

	second := SetupTestServer(t, TestServerConfig{DBType: "memory", CacheType: "redis", RedisPrefix: prefix})
	recs = decodeBody[core.Recommendations](t, doJSON(t, http.MethodGet, second.ServerURL+query, nil, nil))
	require.Len(t, recs.Fashion, 2)
	assert.Zero(t, second.MockLLM.Calls(), "answers should come from the shared cache")
}
