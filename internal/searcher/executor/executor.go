// Package executor answers free-text quote queries against the installed
// snapshot: the index selects, the store resolves, recency orders.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/app"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/tracing"
)

type Mode string

const (
	ModeRecent Mode = "recent"
	ModeSearch Mode = "search"
)

type SearchResult struct {
	Query      string             `json:"query"`
	Mode       Mode               `json:"mode"`
	Generation uint64             `json:"generation"`
	Documents  []*quotes.Document `json:"documents"`
	TotalHits  int                `json:"total_hits"`
	Dangling   int                `json:"dangling"`
	CacheHit   bool               `json:"cache_hit"`
}

// SnapshotProvider is satisfied by *app.App.
type SnapshotProvider interface {
	Snapshot() (*app.Snapshot, error)
}

// HitCache is satisfied by *cache.QueryCache.
type HitCache interface {
	GetOrCompute(ctx context.Context, generation uint64, query string, computeFn func() ([]indexer.Hit, error)) ([]indexer.Hit, bool, error)
}

type Options struct {
	Search  config.SearchConfig
	Cache   HitCache
	Metrics *metrics.Metrics
	Tracker analytics.Tracker
	Tracing bool
}

type Executor struct {
	provider SnapshotProvider
	cfg      config.SearchConfig
	cache    HitCache
	metrics  *metrics.Metrics
	tracker  analytics.Tracker
	tracing  bool
	logger   *slog.Logger
}

func New(provider SnapshotProvider, opts Options) *Executor {
	if opts.Search.RecentLimit <= 0 {
		opts.Search.RecentLimit = 10
	}
	return &Executor{
		provider: provider,
		cfg:      opts.Search,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		tracker:  opts.Tracker,
		tracing:  opts.Tracing,
		logger:   slog.Default().With("component", "query-executor"),
	}
}

// Execute runs one query. Blank text returns the most recent quotes without
// touching the index. Before the first load it returns ErrNotReady.
func (e *Executor) Execute(ctx context.Context, text string) (*SearchResult, error) {
	start := time.Now()
	snap, err := e.provider.Snapshot()
	if err != nil {
		e.countQuery(modeFor(text), "not_ready")
		return nil, err
	}

	var span *tracing.Span
	if e.tracing {
		ctx, span = tracing.StartSpan(ctx, "quotes.query", logger.RequestID(ctx))
		span.SetAttr("generation", snap.Generation)
		defer func() {
			span.End()
			span.Log(logger.FromContext(ctx))
		}()
	}

	var result *SearchResult
	if strings.TrimSpace(text) == "" {
		result = e.recent(snap, text)
	} else {
		result, err = e.search(ctx, snap, text)
		if err != nil {
			e.countQuery(ModeSearch, "error")
			return nil, err
		}
	}

	elapsed := time.Since(start)
	e.observe(ctx, result, elapsed)
	if span != nil {
		span.SetAttr("mode", string(result.Mode))
		span.SetAttr("results", len(result.Documents))
	}
	return result, nil
}

// Quote returns one stored quote by id.
func (e *Executor) Quote(id string) (*quotes.Document, error) {
	snap, err := e.provider.Snapshot()
	if err != nil {
		return nil, err
	}
	doc, ok := snap.Store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrQuoteNotFound, id)
	}
	return doc, nil
}

func (e *Executor) recent(snap *app.Snapshot, text string) *SearchResult {
	docs := snap.Store.Recent(e.cfg.RecentLimit)
	return &SearchResult{
		Query:      text,
		Mode:       ModeRecent,
		Generation: snap.Generation,
		Documents:  docs,
		TotalHits:  len(docs),
	}
}

func (e *Executor) search(ctx context.Context, snap *app.Snapshot, text string) (*SearchResult, error) {
	if e.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.QueryTimeout)
		defer cancel()
	}

	lookup := func() ([]indexer.Hit, error) {
		return snap.Index.Search(ctx, text, e.cfg.MaxResults)
	}
	var (
		hits     []indexer.Hit
		cacheHit bool
		err      error
	)
	if e.cache != nil {
		hits, cacheHit, err = e.cache.GetOrCompute(ctx, snap.Generation, text, lookup)
	} else {
		hits, err = lookup()
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: query %q", apperrors.ErrTimeout, text)
		}
		return nil, fmt.Errorf("searching %q: %w", text, err)
	}

	docs := make([]*quotes.Document, 0, len(hits))
	dangling := 0
	for _, hit := range hits {
		doc, ok := snap.Store.Get(hit.Ref)
		if !ok {
			dangling++
			logger.FromContext(ctx).Warn("index returned unknown quote id",
				"ref", hit.Ref,
				"generation", snap.Generation,
			)
			continue
		}
		docs = append(docs, doc)
	}
	quotes.SortByRecency(docs)

	return &SearchResult{
		Query:      text,
		Mode:       ModeSearch,
		Generation: snap.Generation,
		Documents:  docs,
		TotalHits:  len(hits),
		Dangling:   dangling,
		CacheHit:   cacheHit,
	}, nil
}

func (e *Executor) observe(ctx context.Context, r *SearchResult, elapsed time.Duration) {
	outcome := "hit"
	if len(r.Documents) == 0 {
		outcome = "zero_result"
	}
	e.countQuery(r.Mode, outcome)
	if e.metrics != nil {
		cacheStatus := "none"
		if r.Mode == ModeSearch && e.cache != nil {
			cacheStatus = "miss"
			if r.CacheHit {
				cacheStatus = "hit"
				e.metrics.CacheHitsTotal.Inc()
			} else {
				e.metrics.CacheMissesTotal.Inc()
			}
		}
		e.metrics.QueryLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
		e.metrics.QueryResultsCount.Observe(float64(len(r.Documents)))
		if r.Dangling > 0 {
			e.metrics.DanglingRefsTotal.Add(float64(r.Dangling))
		}
	}
	if e.tracker != nil {
		evType := analytics.EventSearch
		if len(r.Documents) == 0 {
			evType = analytics.EventZeroResult
		}
		e.tracker.Track(analytics.KeySearch, analytics.SearchEvent{
			Type:       evType,
			Query:      r.Query,
			Mode:       string(r.Mode),
			Generation: r.Generation,
			TotalHits:  r.TotalHits,
			Returned:   len(r.Documents),
			Dangling:   r.Dangling,
			LatencyMs:  elapsed.Milliseconds(),
			CacheHit:   r.CacheHit,
			Timestamp:  time.Now().UTC(),
			RequestID:  logger.RequestID(ctx),
		})
	}
	logger.FromContext(ctx).Debug("query executed",
		"query", r.Query,
		"mode", r.Mode,
		"generation", r.Generation,
		"hits", r.TotalHits,
		"results", len(r.Documents),
		"dangling", r.Dangling,
		"cache_hit", r.CacheHit,
		"latency_ms", elapsed.Milliseconds(),
	)
}

func (e *Executor) countQuery(mode Mode, outcome string) {
	if e.metrics != nil {
		e.metrics.QueriesTotal.WithLabelValues(string(mode), outcome).Inc()
	}
}

func modeFor(text string) Mode {
	if strings.TrimSpace(text) == "" {
		return ModeRecent
	}
	return ModeSearch
}
