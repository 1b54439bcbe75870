package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
)

func fixture() []*quotes.Document {
	day := func(y int) time.Time { return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC) }
	return []*quotes.Document{
		quotes.NewDocument("1", []string{"alice"}, []string{"hello world"}, day(2020)),
		quotes.NewDocument("2", []string{"bob"}, []string{"goodbye"}, day(2021)),
		quotes.NewDocument("3", []string{"carol"}, []string{"hello again", "the world says hello"}, day(2019)),
	}
}

func refs(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Ref
	}
	return out
}

func buildAll(t *testing.T) map[string]Index {
	t.Helper()
	out := make(map[string]Index)
	for _, backend := range []string{BackendBleve, BackendNative} {
		b, err := NewBuilder(config.IndexConfig{Backend: backend})
		require.NoError(t, err)
		assert.Equal(t, backend, b.Name())
		idx, err := b.Build(context.Background(), fixture())
		require.NoError(t, err)
		t.Cleanup(func() { idx.Close() })
		out[backend] = idx
	}
	return out
}

func TestBackendsMatchText(t *testing.T) {
	for name, idx := range buildAll(t) {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, 3, idx.DocCount())

			hits, err := idx.Search(context.Background(), "hello", 0)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"1", "3"}, refs(hits))

			hits, err = idx.Search(context.Background(), "goodbye", 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"2"}, refs(hits))
		})
	}
}

func TestBackendsMatchUsers(t *testing.T) {
	for name, idx := range buildAll(t) {
		t.Run(name, func(t *testing.T) {
			hits, err := idx.Search(context.Background(), "bob", 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"2"}, refs(hits))

			hits, err = idx.Search(context.Background(), "users:alice", 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"1"}, refs(hits))
		})
	}
}

func TestBackendsZeroMatch(t *testing.T) {
	for name, idx := range buildAll(t) {
		t.Run(name, func(t *testing.T) {
			hits, err := idx.Search(context.Background(), "zebra", 0)
			require.NoError(t, err)
			assert.Empty(t, hits)
		})
	}
}

func TestBackendsOrderAndLimit(t *testing.T) {
	for name, idx := range buildAll(t) {
		t.Run(name, func(t *testing.T) {
			hits, err := idx.Search(context.Background(), "hello world", 0)
			require.NoError(t, err)
			require.NotEmpty(t, hits)
			for i := 1; i < len(hits); i++ {
				prev, cur := hits[i-1], hits[i]
				assert.True(t, prev.Score > cur.Score || (prev.Score == cur.Score && prev.Ref < cur.Ref))
			}

			limited, err := idx.Search(context.Background(), "hello world", 1)
			require.NoError(t, err)
			assert.Equal(t, refs(hits)[:1], refs(limited))
		})
	}
}

func TestBackendsDeterministic(t *testing.T) {
	for name, idx := range buildAll(t) {
		t.Run(name, func(t *testing.T) {
			first, err := idx.Search(context.Background(), "hello", 0)
			require.NoError(t, err)
			second, err := idx.Search(context.Background(), "hello", 0)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestNativeNotExcludes(t *testing.T) {
	idx, err := BuildNative(context.Background(), fixture())
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), "hello NOT carol", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, refs(hits))

	hits, err = idx.Search(context.Background(), "hello AND says", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, refs(hits))

	hits, err = idx.Search(context.Background(), "hello -carol", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, refs(hits))

	hits, err = idx.Search(context.Background(), "+goodbye", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, refs(hits))
}

func TestBackendsAgreeOnExclusions(t *testing.T) {
	for name, idx := range buildAll(t) {
		t.Run(name, func(t *testing.T) {
			hits, err := idx.Search(context.Background(), "-hello", 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"2"}, refs(hits))

			hits, err = idx.Search(context.Background(), "hello -world", 0)
			require.NoError(t, err)
			assert.Empty(t, hits)
		})
	}
}

func TestBleveRejectsUnparsableQuery(t *testing.T) {
	idx, err := BuildBleve(context.Background(), fixture())
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.Search(context.Background(), "+", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestBuildEmpty(t *testing.T) {
	for _, build := range []func(context.Context, []*quotes.Document) (Index, error){BuildBleve, BuildNative} {
		idx, err := build(context.Background(), nil)
		require.NoError(t, err)
		hits, err := idx.Search(context.Background(), "hello", 0)
		require.NoError(t, err)
		assert.Empty(t, hits)
		require.NoError(t, idx.Close())
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := NewBuilder(config.IndexConfig{Backend: "lucene"})
	assert.Error(t, err)
}

func TestBackendsMatchShortUserIDs(t *testing.T) {
	day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []*quotes.Document{
		quotes.NewDocument("1", []string{"a"}, []string{"hello world"}, day),
		quotes.NewDocument("2", []string{"B"}, []string{"goodbye"}, day),
	}
	for _, backend := range []string{BackendBleve, BackendNative} {
		t.Run(backend, func(t *testing.T) {
			b, err := NewBuilder(config.IndexConfig{Backend: backend})
			require.NoError(t, err)
			idx, err := b.Build(context.Background(), docs)
			require.NoError(t, err)
			defer idx.Close()

			hits, err := idx.Search(context.Background(), "a", 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"1"}, refs(hits))

			hits, err = idx.Search(context.Background(), "b", 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"2"}, refs(hits))

			hits, err = idx.Search(context.Background(), "hello b", 0)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"1", "2"}, refs(hits))
		})
	}
}
