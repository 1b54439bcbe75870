package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/resilience"
)

const twoQuotes = `[
  {"id": 1, "users": ["alice"], "lines": ["hello world"], "uploaded": "2017-06-16T10:00Z"},
  {"id": "b", "users": ["bob"], "lines": ["goodbye"], "uploaded": "2017-06-17T10:00:00Z"}
]`

func TestDecodeCollectionKeepsBadElements(t *testing.T) {
	recs, err := DecodeCollection(strings.NewReader(`[{"id": 1, "lines": ["x"]}, 42, {"users": "not-a-list"}]`))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.NoError(t, recs[0].DecodeErr)
	assert.Equal(t, "1", string(recs[0].ID))
	assert.Error(t, recs[1].DecodeErr)
	assert.Error(t, recs[2].DecodeErr)
}

func TestDecodeCollectionRejectsNonArray(t *testing.T) {
	_, err := DecodeCollection(strings.NewReader(`{"id": 1}`))
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestEmbeddedSource(t *testing.T) {
	src := NewEmbedded()
	recs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "embedded", src.Name())
	assert.Len(t, recs, 3)
}

func TestLiteralReturnsCopy(t *testing.T) {
	lines := []string{"a"}
	src := NewLiteral("test", []quotes.RawRecord{{ID: quotes.RawID(1), Lines: &lines}})

	first, err := src.Fetch(context.Background())
	require.NoError(t, err)
	first[0].ID = quotes.RawID(99)

	second, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", string(second[0].ID))
}

func TestLiteralHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLiteral("test", nil).Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestFileSourceGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), twoQuotes)
	writeFile(t, filepath.Join(dir, "nested", "b.json"), `[{"id": 3, "users": [], "lines": ["third"], "uploaded": "2018-01-01T00:00Z"}]`)
	writeFile(t, filepath.Join(dir, "ignored.txt"), "not json")

	src := NewFile(filepath.Join(dir, "**", "*.json"))
	recs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "1", string(recs[0].ID))
	assert.Equal(t, "3", string(recs[2].ID))
	assert.True(t, strings.HasPrefix(src.Name(), "file:"))
}

func TestFileSourceNoMatches(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "*.json")).Fetch(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestFileSourceBadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.json"), "{")
	_, err := NewFile(filepath.Join(dir, "*.json")).Fetch(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestWatcherDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quotes.json")
	writeFile(t, path, twoQuotes)

	var fired atomic.Int32
	w := NewWatcher(filepath.Join(dir, "*.json"), 50*time.Millisecond, func(context.Context) {
		fired.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 3; i++ {
		writeFile(t, path, twoQuotes)
	}
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())

	cancel()
	require.NoError(t, <-done)
}

func httpConfig(url string) config.SourceConfig {
	return config.SourceConfig{
		Kind:          config.SourceHTTP,
		URL:           url,
		FetchTimeout:  time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		BreakerErrors: 10,
		BreakerReset:  time.Second,
	}
}

func TestHTTPSourceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(twoQuotes))
	}))
	defer srv.Close()

	recs, err := NewHTTP(httpConfig(srv.URL), nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPSourceClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewHTTP(httpConfig(srv.URL), nil).Fetch(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPSourceBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := httpConfig(srv.URL)
	cfg.RetryAttempts = 1
	cfg.BreakerErrors = 2
	cfg.BreakerReset = time.Minute
	var opened atomic.Bool
	src := NewHTTP(cfg, func(_ string, _, to resilience.State) {
		if to == resilience.StateOpen {
			opened.Store(true)
		}
	})

	for i := 0; i < 3; i++ {
		_, err := src.Fetch(context.Background())
		assert.Error(t, err)
	}
	assert.True(t, opened.Load())
	assert.Equal(t, resilience.StateOpen, src.BreakerState())
}

func TestRecordFromMap(t *testing.T) {
	uploaded := time.Date(2017, 6, 16, 10, 0, 0, 0, time.UTC)
	rec := recordFromMap(map[string]interface{}{
		"id":       int64(7),
		"users":    []interface{}{"alice"},
		"lines":    []interface{}{"one", "two"},
		"uploaded": uploaded,
	}, "doc-7")

	require.NoError(t, rec.DecodeErr)
	assert.Equal(t, "7", string(rec.ID))
	assert.Equal(t, []string{"alice"}, *rec.Users)
	assert.Equal(t, []string{"one", "two"}, *rec.Lines)
	assert.Equal(t, "2017-06-16T10:00:00Z", *rec.Uploaded)
}

func TestRecordFromMapFallsBackToDocumentID(t *testing.T) {
	rec := recordFromMap(map[string]interface{}{"lines": []interface{}{"x"}}, "abc")
	require.NoError(t, rec.DecodeErr)
	assert.Equal(t, `"abc"`, string(rec.ID))
	assert.Nil(t, rec.Users)
	assert.Nil(t, rec.Uploaded)
}

func TestRecordFromMapRejectsWrongTypes(t *testing.T) {
	rec := recordFromMap(map[string]interface{}{"id": 1.5}, "")
	assert.Error(t, rec.DecodeErr)

	rec = recordFromMap(map[string]interface{}{"id": "x", "lines": []interface{}{1}}, "")
	assert.Error(t, rec.DecodeErr)
}

func TestNewPostgresRejectsBadTable(t *testing.T) {
	_, err := NewPostgres(nil, "quotes; DROP TABLE x")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	src, err := NewPostgres(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "postgres:quotes", src.Name())
	assert.Equal(t, `"public"."quotes"`, quoteTable("public.quotes"))
}
