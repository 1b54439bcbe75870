package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []any
}

func (s *recordingSink) Track(_ string, value any) {
	s.mu.Lock()
	s.events = append(s.events, value)
	s.mu.Unlock()
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestCollectorForwardsToSink(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(sink, 16)
	c.Start(context.Background())

	for i := 0; i < 5; i++ {
		c.Track(KeySearch, SearchEvent{Type: EventSearch, Query: "q"})
	}
	c.Close()

	assert.Equal(t, 5, sink.len())
}

func TestCollectorDropsAfterClose(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(sink, 4)
	c.Start(context.Background())
	c.Close()

	assert.NotPanics(t, func() { c.Track(KeySearch, SearchEvent{}) })
	assert.Equal(t, 0, sink.len())
}

func TestCollectorDrainsOnCancel(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(sink, 8)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Track(KeyLoad, LoadEvent{Type: EventLoad, Status: "ok"})
	cancel()

	require.Eventually(t, func() bool { return sink.len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Track(KeySearch, SearchEvent{Type: EventSearch, Mode: "search", Query: "hello", Returned: 2, LatencyMs: 4})
	agg.Track(KeySearch, SearchEvent{Type: EventSearch, Mode: "search", Query: "hello", Returned: 2, LatencyMs: 2, CacheHit: true})
	agg.Track(KeySearch, SearchEvent{Type: EventZeroResult, Mode: "search", Query: "nothing", LatencyMs: 6, Dangling: 1})
	agg.Track(KeySearch, &SearchEvent{Type: EventSearch, Mode: "recent", Returned: 10, LatencyMs: 1})
	agg.Track(KeyLoad, LoadEvent{Type: EventLoad, Generation: 1, Status: "ok", Accepted: 3})
	agg.Track(KeyLoad, LoadEvent{Type: EventLoad, Generation: 2, Status: "stale"})
	agg.Track("other", "ignored")

	stats := agg.Stats()
	assert.Equal(t, int64(4), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.RecentQueries)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(2), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, int64(1), stats.DanglingRefs)
	assert.InDelta(t, 3.25, stats.AvgLatencyMs, 0.001)
	assert.Equal(t, []QueryCount{{Query: "hello", Count: 2}, {Query: "nothing", Count: 1}}, stats.TopQueries)
	assert.Equal(t, []QueryCount{{Query: "nothing", Count: 1}}, stats.ZeroResultQueries)
	assert.Equal(t, map[string]int64{"ok": 1, "stale": 1}, stats.Loads)
	require.NotNil(t, stats.LastLoad)
	assert.Equal(t, uint64(1), stats.LastLoad.Generation)
}

func TestAggregatorStartWithoutConsumer(t *testing.T) {
	assert.NoError(t, NewAggregator().Start(context.Background()))
}

func TestHandleEventDecodesByType(t *testing.T) {
	agg := NewAggregator()
	h := HandleEvent(agg)
	ctx := context.Background()

	search, err := json.Marshal(SearchEvent{Type: EventSearch, Mode: "search", Query: "x", Returned: 1})
	require.NoError(t, err)
	load, err := json.Marshal(LoadEvent{Type: EventLoad, Status: "failed", Error: "boom"})
	require.NoError(t, err)

	require.NoError(t, h(ctx, []byte(KeySearch), search))
	require.NoError(t, h(ctx, []byte(KeyLoad), load))
	require.NoError(t, h(ctx, nil, []byte(`{"type":"unknown"}`)))
	require.NoError(t, h(ctx, nil, []byte(`garbage`)))

	stats := agg.Stats()
	assert.Equal(t, int64(1), stats.TotalSearches)
	assert.Equal(t, map[string]int64{"failed": 1}, stats.Loads)
	require.NotNil(t, stats.LastLoad)
	assert.Equal(t, "boom", stats.LastLoad.Error)
}

func TestPercentile(t *testing.T) {
	sorted := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, int64(6), percentile(sorted, 50))
	assert.Equal(t, int64(10), percentile(sorted, 99))
	assert.Equal(t, int64(0), percentile(nil, 50))
}

func TestStatsHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Track(KeySearch, SearchEvent{Type: EventSearch, Mode: "search", Query: "q", Returned: 1})
	mux := http.NewServeMux()
	NewHandler(agg, nil).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.TotalSearches)
}

type fakeSnapshots struct {
	stats *AggregatedStats
	err   error
}

func (f fakeSnapshots) LatestSnapshot(ctx context.Context) (*AggregatedStats, error) {
	return f.stats, f.err
}

func TestHandlerTopAndSnapshot(t *testing.T) {
	agg := NewAggregator()
	for _, q := range []string{"a", "b", "c"} {
		agg.Track(KeySearch, SearchEvent{Type: EventSearch, Mode: "search", Query: q, Returned: 0})
	}

	get := func(h *Handler, target string) *httptest.ResponseRecorder {
		mux := http.NewServeMux()
		h.Register(mux)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	rec := get(NewHandler(agg, nil), "/api/v1/analytics?top=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Len(t, stats.TopQueries, 2)
	assert.Len(t, stats.ZeroResultQueries, 2)

	assert.Equal(t, http.StatusBadRequest, get(NewHandler(agg, nil), "/api/v1/analytics?top=x").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(NewHandler(agg, nil), "/api/v1/analytics/snapshot").Code)
	assert.Equal(t, http.StatusNotFound, get(NewHandler(agg, fakeSnapshots{}), "/api/v1/analytics/snapshot").Code)
	assert.Equal(t, http.StatusInternalServerError,
		get(NewHandler(agg, fakeSnapshots{err: errors.New("db down")}), "/api/v1/analytics/snapshot").Code)

	rec = get(NewHandler(agg, fakeSnapshots{stats: &AggregatedStats{TotalSearches: 7}}), "/api/v1/analytics/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(7), stats.TotalSearches)
}
