// Package app owns the loaded quote collection and its lifecycle. Every
// surface reads the collection through App.Snapshot, which refuses to hand
// out anything until a load has completed.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/tracing"
)

// ErrSuperseded is returned by Load when a newer generation was installed
// while this one was still building.
var ErrSuperseded = errors.New("load superseded by a newer generation")

const defaultRetireAfter = 30 * time.Second

// Snapshot is one installed load: a store and the index built from it.
// Both are read-only.
type Snapshot struct {
	Generation uint64
	Source     string
	Store      *quotes.Store
	Index      indexer.Index
	Report     quotes.Report
	LoadedAt   time.Time
}

type Options struct {
	Source  source.Source
	Builder indexer.Builder
	Metrics *metrics.Metrics
	Tracker analytics.Tracker
	Tracing bool
	// RetireAfter delays closing a replaced index so in-flight queries
	// against it can finish.
	RetireAfter time.Duration
}

type App struct {
	source      source.Source
	builder     indexer.Builder
	metrics     *metrics.Metrics
	tracker     analytics.Tracker
	tracing     bool
	retireAfter time.Duration
	logger      *slog.Logger

	nextGen  atomic.Uint64
	inflight atomic.Int32
	reloads  sync.WaitGroup

	mu        sync.RWMutex
	state     State
	snapshot  *Snapshot
	lastErr   error
	observers map[int]func(Status)
	nextObs   int
	onInstall []func(*Snapshot)
}

func New(opts Options) *App {
	if opts.RetireAfter <= 0 {
		opts.RetireAfter = defaultRetireAfter
	}
	a := &App{
		source:      opts.Source,
		builder:     opts.Builder,
		metrics:     opts.Metrics,
		tracker:     opts.Tracker,
		tracing:     opts.Tracing,
		retireAfter: opts.RetireAfter,
		logger:      slog.Default().With("component", "app"),
		state:       StateUninitialized,
		observers:   make(map[int]func(Status)),
	}
	a.setStateMetric(StateUninitialized)
	return a
}

// OnInstall registers fn to run after every snapshot install, outside the
// lock. Register before the first Load.
func (a *App) OnInstall(fn func(*Snapshot)) {
	a.mu.Lock()
	a.onInstall = append(a.onInstall, fn)
	a.mu.Unlock()
}

// Snapshot returns the installed snapshot, or ErrNotReady before the first
// load completes, or ErrLoadFailed when the initial load failed.
func (a *App) Snapshot() (*Snapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	switch a.state {
	case StateReady:
		return a.snapshot, nil
	case StateFailed:
		return nil, fmt.Errorf("%w: %v", apperrors.ErrLoadFailed, a.lastErr)
	default:
		return nil, apperrors.ErrNotReady
	}
}

func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.statusLocked()
}

func (a *App) statusLocked() Status {
	st := Status{
		State:     a.state,
		Source:    a.source.Name(),
		Reloading: a.inflight.Load() > 0 && a.state == StateReady,
	}
	if a.builder != nil {
		st.Backend = a.builder.Name()
	}
	if a.snapshot != nil {
		st.Generation = a.snapshot.Generation
		st.Documents = a.snapshot.Store.Len()
		st.Rejected = len(a.snapshot.Report.Rejected)
		st.LoadedAt = a.snapshot.LoadedAt
	}
	if a.lastErr != nil {
		st.Message = a.lastErr.Error()
	}
	return st
}

// Subscribe calls fn with the new status after every lifecycle change. The
// returned func removes the subscription.
func (a *App) Subscribe(fn func(Status)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextObs
	a.nextObs++
	a.observers[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.observers, id)
		a.mu.Unlock()
	}
}

// Load fetches, validates and indexes the collection under a new
// generation and installs it unless a newer generation got there first.
func (a *App) Load(ctx context.Context) error {
	gen := a.nextGen.Add(1)
	a.inflight.Add(1)
	defer a.inflight.Add(-1)

	a.mu.Lock()
	if a.snapshot == nil {
		a.state = StateLoading
	}
	a.afterChangeLocked()

	start := time.Now()
	snap, err := a.build(ctx, gen)
	elapsed := time.Since(start)
	if a.metrics != nil {
		a.metrics.LoadDuration.Observe(elapsed.Seconds())
	}

	if err != nil {
		return a.loadFailed(gen, elapsed, err)
	}
	return a.install(snap, elapsed)
}

// Reload runs Load on its own goroutine. The load outlives ctx's
// cancellation but keeps its values.
func (a *App) Reload(ctx context.Context) {
	a.reloads.Add(1)
	go func() {
		defer a.reloads.Done()
		if err := a.Load(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, ErrSuperseded) {
			a.logger.Error("reload failed", "error", err)
		}
	}()
}

// Wait blocks until every reload started with Reload has finished.
func (a *App) Wait() {
	a.reloads.Wait()
}

func (a *App) build(ctx context.Context, gen uint64) (*Snapshot, error) {
	ctx, root := tracing.StartSpan(ctx, "quotes.load", "")
	root.SetAttr("generation", gen)
	root.SetAttr("source", a.source.Name())
	defer func() {
		root.End()
		if a.tracing {
			root.Log(a.logger)
		}
	}()

	fetchCtx, span := tracing.StartChildSpan(ctx, "fetch")
	records, err := a.source.Fetch(fetchCtx)
	span.SetAttr("records", len(records))
	span.End()
	if err != nil {
		return nil, fmt.Errorf("fetching from %s: %w", a.source.Name(), err)
	}

	_, span = tracing.StartChildSpan(ctx, "build_store")
	store, report := quotes.NewStore(records)
	span.SetAttr("accepted", report.Accepted)
	span.SetAttr("rejected", len(report.Rejected))
	span.End()
	if a.metrics != nil {
		for reason, n := range report.RejectedByReason() {
			a.metrics.RecordsRejectedTotal.WithLabelValues(reason).Add(float64(n))
		}
	}

	indexCtx, span := tracing.StartChildSpan(ctx, "build_index")
	idx, err := a.builder.Build(indexCtx, store.All())
	span.End()
	if err != nil {
		return nil, fmt.Errorf("building %s index: %w", a.builder.Name(), err)
	}

	return &Snapshot{
		Generation: gen,
		Source:     a.source.Name(),
		Store:      store,
		Index:      idx,
		Report:     report,
		LoadedAt:   time.Now().UTC(),
	}, nil
}

func (a *App) install(snap *Snapshot, elapsed time.Duration) error {
	a.mu.Lock()
	if a.snapshot != nil && a.snapshot.Generation >= snap.Generation {
		installed := a.snapshot.Generation
		a.mu.Unlock()
		snap.Index.Close()
		a.countLoad("stale")
		a.trackLoad(snap.Generation, "stale", snap.Report, elapsed, nil)
		a.logger.Info("discarding stale load", "generation", snap.Generation, "installed", installed)
		return ErrSuperseded
	}
	old := a.snapshot
	a.snapshot = snap
	a.state = StateReady
	a.lastErr = nil
	hooks := append([]func(*Snapshot){}, a.onInstall...)
	a.afterChangeLocked()

	if old != nil {
		time.AfterFunc(a.retireAfter, func() {
			if err := old.Index.Close(); err != nil {
				a.logger.Warn("closing retired index failed", "generation", old.Generation, "error", err)
			}
		})
	}
	for _, fn := range hooks {
		fn(snap)
	}
	if a.metrics != nil {
		a.metrics.DocsLoaded.Set(float64(snap.Store.Len()))
	}
	a.countLoad("installed")
	a.trackLoad(snap.Generation, "installed", snap.Report, elapsed, nil)
	a.logger.Info("quote collection installed",
		"generation", snap.Generation,
		"source", snap.Source,
		"documents", snap.Store.Len(),
		"rejected", len(snap.Report.Rejected),
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}

func (a *App) loadFailed(gen uint64, elapsed time.Duration, err error) error {
	a.mu.Lock()
	switch {
	case a.snapshot != nil:
		a.lastErr = err
		a.logger.Error("reload failed, keeping installed collection",
			"generation", gen,
			"installed", a.snapshot.Generation,
			"error", err,
		)
	case gen == a.nextGen.Load():
		a.state = StateFailed
		a.lastErr = err
		a.logger.Error("initial load failed", "generation", gen, "error", err)
	default:
		a.logger.Warn("superseded load failed", "generation", gen, "error", err)
	}
	a.afterChangeLocked()

	a.countLoad("failed")
	a.trackLoad(gen, "failed", quotes.Report{}, elapsed, err)
	return fmt.Errorf("%w: %v", apperrors.ErrLoadFailed, err)
}

// afterChangeLocked publishes the current status and releases a.mu.
func (a *App) afterChangeLocked() {
	st := a.statusLocked()
	observers := make([]func(Status), 0, len(a.observers))
	for _, fn := range a.observers {
		observers = append(observers, fn)
	}
	a.mu.Unlock()

	a.setStateMetric(st.State)
	for _, fn := range observers {
		fn(st)
	}
}

func (a *App) setStateMetric(s State) {
	if a.metrics != nil {
		a.metrics.SetLifecycleState(s.String(), stateNames)
	}
}

func (a *App) countLoad(status string) {
	if a.metrics != nil {
		a.metrics.LoadsTotal.WithLabelValues(status).Inc()
	}
}

func (a *App) trackLoad(gen uint64, status string, report quotes.Report, elapsed time.Duration, err error) {
	if a.tracker == nil {
		return
	}
	ev := analytics.LoadEvent{
		Type:       analytics.EventLoad,
		Generation: gen,
		Source:     a.source.Name(),
		Status:     status,
		Accepted:   report.Accepted,
		Rejected:   report.RejectedByReason(),
		LatencyMs:  elapsed.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	a.tracker.Track(analytics.KeyLoad, ev)
}
