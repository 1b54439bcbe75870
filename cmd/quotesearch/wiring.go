package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/app"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes/source"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/resilience"
)

// openSource builds the configured quote source. The returned cleanup
// releases any client the source holds.
func openSource(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (source.Source, func(), error) {
	noop := func() {}
	switch cfg.Source.Kind {
	case config.SourceEmbedded:
		return source.NewEmbedded(), noop, nil

	case config.SourceFile:
		return source.NewFile(cfg.Source.Path), noop, nil

	case config.SourceHTTP:
		onChange := func(name string, from, to resilience.State) {
			slog.Warn("quote source breaker changed", "name", name, "from", from.String(), "to", to.String())
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		}
		return source.NewHTTP(cfg.Source, onChange), noop, nil

	case config.SourcePostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		src, err := source.NewPostgres(client, cfg.Source.Table)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return src, func() { client.Close() }, nil

	case config.SourceFirestore:
		src, err := source.NewFirestore(ctx, cfg.Firestore.ProjectID, cfg.Firestore.Collection)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
}

type appDeps struct {
	metrics *metrics.Metrics
	tracker analytics.Tracker
}

// newApp wires a source and index builder into an App. Callers own the
// returned cleanup.
func newApp(ctx context.Context, cfg *config.Config, deps appDeps) (*app.App, source.Source, func(), error) {
	src, cleanup, err := openSource(ctx, cfg, deps.metrics)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening %s source: %w", cfg.Source.Kind, err)
	}
	builder, err := indexer.NewBuilder(cfg.Index)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	a := app.New(app.Options{
		Source:  src,
		Builder: builder,
		Metrics: deps.metrics,
		Tracker: deps.tracker,
		Tracing: cfg.Tracing.Enabled,
	})
	return a, src, cleanup, nil
}
