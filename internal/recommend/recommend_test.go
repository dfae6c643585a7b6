package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curator/internal/core"
)

type fakeCollaborator struct {
	mu    sync.Mutex
	calls []core.Category
	items map[core.Category][]core.RelatedItem
	errs  map[core.Category]error
}

func (f *fakeCollaborator) RelatedItems(_ context.Context, _ string, c core.Category) ([]core.RelatedItem, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if err := f.errs[c]; err != nil {
		return nil, err
	}
	return f.items[c], nil
}

type resolveCall struct {
	name     string
	strategy core.Strategy
}

type fakeResolver struct {
	mu    sync.Mutex
	calls []resolveCall
}

func (f *fakeResolver) Resolve(_ context.Context, name string, strategy core.Strategy) string {
	f.mu.Lock()
	f.calls = append(f.calls, resolveCall{name, strategy})
	f.mu.Unlock()
	return "https://img.example/" + string(strategy) + "/" + name
}

func relatedItems(prefix string, n int) []core.RelatedItem {
	items := make([]core.RelatedItem, n)
	for i := range items {
		items[i] = core.RelatedItem{
			Name:     fmt.Sprintf("%s %d", prefix, i+1),
			Reason:   "reason",
			Features: []string{"a", "b", "c"},
		}
	}
	return items
}

func TestRecommend_EndToEnd(t *testing.T) {
	collab := &fakeCollaborator{items: map[core.Category][]core.RelatedItem{
		core.CategoryArtists:     {{Name: "あいみょん", Reason: "同世代のシンガーソングライター", Features: []string{"作詞作曲", "J-POP"}}},
		core.CategoryCelebrities: {{Name: "菅田将暉", Reason: "楽曲でコラボ", Features: []string{"俳優", "歌手"}}},
		core.CategoryMedia:       {{Name: "チェンソーマン", Reason: "主題歌を担当", Features: nil}},
		core.CategoryFashion:     {{Name: "Yohji Yamamoto", Reason: "ミュージックビデオの衣装", Features: []string{"モード"}}},
	}}
	resolver := &fakeResolver{}
	svc := New(collab, resolver, Config{})

	recs, err := svc.Recommend(context.Background(), "  米津玄師 ")
	require.NoError(t, err)
	require.NotNil(t, recs)
	assert.Len(t, collab.calls, 4)

	require.Len(t, recs.Artists, 1)
	assert.Equal(t, core.RecommendationItem{
		Name:        "あいみょん",
		Reason:      "同世代のシンガーソングライター",
		Features:    []string{"作詞作曲", "J-POP"},
		ImageURL:    "https://img.example/artist/あいみょん",
		OfficialURL: "https://open.spotify.com/search/%E3%81%82%E3%81%84%E3%81%BF%E3%82%87%E3%82%93",
	}, recs.Artists[0])

	require.Len(t, recs.Celebrities, 1)
	assert.Equal(t, "https://img.example/person/菅田将暉", recs.Celebrities[0].ImageURL)
	assert.Equal(t, "https://www.themoviedb.org/search?query=%E8%8F%85%E7%94%B0%E5%B0%86%E6%9A%89", recs.Celebrities[0].OfficialURL)

	require.Len(t, recs.Media, 1)
	assert.Equal(t, "https://img.example/media/チェンソーマン", recs.Media[0].ImageURL)
	assert.NotNil(t, recs.Media[0].Features)
	assert.Empty(t, recs.Media[0].Features)

	require.Len(t, recs.Fashion, 1)
	assert.Equal(t, "https://img.example/fashion/Yohji Yamamoto", recs.Fashion[0].ImageURL)
	assert.Equal(t, "https://www.google.com/search?q=Yohji%20Yamamoto", recs.Fashion[0].OfficialURL)
}

func TestRecommend_EmptyQuery(t *testing.T) {
	svc := New(&fakeCollaborator{}, &fakeResolver{}, Config{})

	_, err := svc.Recommend(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, core.IsType(err, core.ErrorTypeInvalidRequest))
}

func TestRecommend_CollaboratorFailureFallsBack(t *testing.T) {
	collab := &fakeCollaborator{
		items: map[core.Category][]core.RelatedItem{
			core.CategoryArtists: relatedItems("artist", 3),
		},
		errs: map[core.Category]error{
			core.CategoryMedia: core.NewCollaboratorError("openai", "malformed answer", nil),
		},
	}
	resolver := &fakeResolver{}
	svc := New(collab, resolver, Config{})

	recs, err := svc.Recommend(context.Background(), "米津玄師")
	require.NoError(t, err)

	for _, c := range core.Categories {
		items := recs.Get(c)
		require.Len(t, items, 10, c)
		for _, item := range items {
			assert.Equal(t, "推奨アイテム", item.Name)
			assert.Equal(t, "関連性のある推奨アイテムです", item.Reason)
			assert.Equal(t, []string{"特徴1", "特徴2", "特徴3"}, item.Features)
			assert.Equal(t, core.PlaceholderImage, item.ImageURL)
			assert.Equal(t, "https://example.com", item.OfficialURL)
		}
	}
	assert.Empty(t, resolver.calls)
}

func TestRecommend_IsolateCategoryFailures(t *testing.T) {
	collab := &fakeCollaborator{
		items: map[core.Category][]core.RelatedItem{
			core.CategoryArtists:     relatedItems("artist", 2),
			core.CategoryCelebrities: relatedItems("person", 2),
			core.CategoryFashion:     relatedItems("brand", 2),
		},
		errs: map[core.Category]error{
			core.CategoryMedia: errors.New("upstream down"),
		},
	}
	svc := New(collab, &fakeResolver{}, Config{IsolateCategoryFailures: true})

	recs, err := svc.Recommend(context.Background(), "米津玄師")
	require.NoError(t, err)

	assert.Len(t, recs.Artists, 2)
	assert.Len(t, recs.Celebrities, 2)
	assert.Len(t, recs.Fashion, 2)
	require.Len(t, recs.Media, 10)
	assert.Equal(t, "推奨アイテム", recs.Media[0].Name)
	assert.Equal(t, "artist 1", recs.Artists[0].Name)
}

func TestRecommend_TruncatesToMaxItems(t *testing.T) {
	collab := &fakeCollaborator{items: map[core.Category][]core.RelatedItem{
		core.CategoryArtists: relatedItems("artist", 15),
	}}
	resolver := &fakeResolver{}
	svc := New(collab, resolver, Config{})

	recs, err := svc.Recommend(context.Background(), "米津玄師")
	require.NoError(t, err)
	require.Len(t, recs.Artists, 10)
	assert.Equal(t, "artist 10", recs.Artists[9].Name)
	assert.Len(t, resolver.calls, 10)
}

// waveResolver records how many resolutions had completed when each one started.
type waveResolver struct {
	completed atomic.Int32
	inFlight  atomic.Int32
	maxSeen   atomic.Int32

	mu      sync.Mutex
	started []int
}

func (w *waveResolver) Resolve(_ context.Context, _ string, _ core.Strategy) string {
	w.mu.Lock()
	w.started = append(w.started, int(w.completed.Load()))
	w.mu.Unlock()

	n := w.inFlight.Add(1)
	for {
		prev := w.maxSeen.Load()
		if n <= prev || w.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	time.Sleep(30 * time.Millisecond)
	w.inFlight.Add(-1)
	w.completed.Add(1)
	return core.PlaceholderImage
}

func TestRecommend_ResolvesImagesInBatches(t *testing.T) {
	collab := &fakeCollaborator{items: map[core.Category][]core.RelatedItem{
		core.CategoryArtists: relatedItems("artist", 12),
	}}
	resolver := &waveResolver{}
	svc := New(collab, resolver, Config{MaxItems: 20, BatchSize: 5})

	recs, err := svc.Recommend(context.Background(), "米津玄師")
	require.NoError(t, err)
	require.Len(t, recs.Artists, 12)

	started := append([]int(nil), resolver.started...)
	require.Len(t, started, 12)
	sort.Ints(started)
	for i, seen := range started {
		wave := i / 5
		assert.GreaterOrEqual(t, seen, wave*5, "call %d", i)
		assert.Less(t, seen, wave*5+5, "call %d", i)
	}
	assert.LessOrEqual(t, resolver.maxSeen.Load(), int32(5))

	for i, item := range recs.Artists {
		assert.Equal(t, fmt.Sprintf("artist %d", i+1), item.Name)
	}
}

func TestRecommend_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := New(&fakeCollaborator{}, &fakeResolver{}, Config{})
	_, err := svc.Recommend(ctx, "米津玄師")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRelatedItems(t *testing.T) {
	collab := &fakeCollaborator{items: map[core.Category][]core.RelatedItem{
		core.CategoryMedia: relatedItems("movie", 2),
	}}
	svc := New(collab, &fakeResolver{}, Config{})

	items, err := svc.RelatedItems(context.Background(), "米津玄師", core.CategoryMedia)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = svc.RelatedItems(context.Background(), "米津玄師", core.Category("podcasts"))
	assert.True(t, core.IsType(err, core.ErrorTypeInvalidRequest))

	_, err = svc.RelatedItems(context.Background(), "", core.CategoryMedia)
	assert.True(t, core.IsType(err, core.ErrorTypeInvalidRequest))
}

func TestEncodeURIComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc", "abc"},
		{"a b", "a%20b"},
		{"rock&roll", "rock%26roll"},
		{"-_.!~*'()", "-_.!~*'()"},
		{"a+b=c", "a%2Bb%3Dc"},
		{"米津", "%E7%B1%B3%E6%B4%A5"},
		{"AC/DC?", "AC%2FDC%3F"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeURIComponent(tt.in))
		})
	}
}

func TestFallback_ItemsAreIndependent(t *testing.T) {
	recs := Fallback()
	recs.Artists[0].Features[0] = "changed"
	assert.Equal(t, "特徴1", recs.Artists[1].Features[0])
	assert.Equal(t, "特徴1", recs.Fashion[0].Features[0])
	assert.Equal(t, "特徴1", Fallback().Artists[0].Features[0])
}
