package web

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/app"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/controller"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/searcher/executor"
)

// gatedQuerier holds its first query until release is closed and answers
// every query with one document named after the text.
type gatedQuerier struct {
	release chan struct{}

	mu    sync.Mutex
	calls []string
}

func (g *gatedQuerier) Execute(_ context.Context, text string) (*executor.SearchResult, error) {
	g.mu.Lock()
	first := len(g.calls) == 0
	g.calls = append(g.calls, text)
	g.mu.Unlock()
	if first {
		<-g.release
	}
	doc := quotes.NewDocument("q:"+text, []string{"alice"}, []string{"result for " + text}, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	return &executor.SearchResult{Query: text, Documents: []*quotes.Document{doc}}, nil
}

func (g *gatedQuerier) executed() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func newTestClient(q controller.Querier) *client {
	return newClient(nil, func(p *presenter.Presenter) *controller.Controller {
		return controller.New(q, p, presenter.DateFormatter{})
	}, slog.New(slog.DiscardHandler))
}

func TestNewGenerationRerunsLatestSubmission(t *testing.T) {
	q := &gatedQuerier{release: make(chan struct{})}
	c := newTestClient(q)
	done := make(chan struct{})
	go func() {
		c.runQueries(context.Background())
		close(done)
	}()

	c.onStatus(app.Status{State: app.StateReady, Generation: 1})
	require.Eventually(t, func() bool { return len(q.executed()) == 1 }, time.Second, 5*time.Millisecond)

	c.request(queryRequest{value: "x"})
	c.onStatus(app.Status{State: app.StateReady, Generation: 2})
	close(q.release)
	c.close()
	<-done

	assert.Equal(t, []string{"", "x", "x"}, q.executed())
	results := c.presenter.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "q:x", results[0].ID)
}

func TestNonEnterKeysAreNotQueued(t *testing.T) {
	c := newTestClient(&gatedQuerier{release: make(chan struct{})})

	c.request(queryRequest{key: "h", value: "hel"})
	c.request(queryRequest{key: controller.KeyEnter, value: "hello"})

	assert.Len(t, c.queries, 1)
	c.mu.Lock()
	assert.Equal(t, "hello", c.lastQuery)
	c.mu.Unlock()
}

func TestUnencodableMessageIsDropped(t *testing.T) {
	c := newTestClient(&gatedQuerier{release: make(chan struct{})})

	data := encode(map[string]any{"bad": make(chan int)})
	assert.Nil(t, data)
	c.enqueue(data)
	assert.Empty(t, c.send)
}
