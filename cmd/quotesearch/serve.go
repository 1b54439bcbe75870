package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/app"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes/source"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/web"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/resilience"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search page, JSON API and websocket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// analyticsPipeline is the event path for one process. Events go from the
// collector either straight into the aggregator or, with Kafka enabled,
// through the batch collector to the analytics topic, which the aggregator
// consumes.
type analyticsPipeline struct {
	collector  *analytics.Collector
	batch      *collector.BatchCollector
	producer   *kafka.Producer
	aggregator *analytics.Aggregator
	consumer   *kafka.Consumer
	stopBatch  context.CancelFunc
}

func newAnalyticsPipeline(cfg *config.Config, instance string) *analyticsPipeline {
	p := &analyticsPipeline{aggregator: analytics.NewAggregator()}
	// Delivery outlives the serve context so events tracked during
	// shutdown still reach the sink.
	bgCtx, cancel := context.WithCancel(context.Background())
	p.stopBatch = cancel

	var sink analytics.Tracker = p.aggregator
	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.AnalyticsEvents
		p.producer = kafka.NewProducer(cfg.Kafka, topic)
		p.batch = collector.NewBatchCollector(p.producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		p.batch.Start(bgCtx)
		sink = p.batch

		p.consumer = kafka.NewConsumer(cfg.Kafka, topic, "analytics-"+instance, analytics.HandleEvent(p.aggregator))
		p.aggregator.Consume(p.consumer)
	}
	p.collector = analytics.NewCollector(sink, cfg.Analytics.BufferSize)
	p.collector.Start(bgCtx)
	return p
}

func (p *analyticsPipeline) Close() {
	p.collector.Close()
	p.stopBatch()
	if p.batch != nil {
		p.batch.Close()
	}
	if p.producer != nil {
		p.producer.Close()
	}
	if p.consumer != nil {
		p.consumer.Close()
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	instance := uuid.NewString()[:8]
	slog.Info("starting quotesearch",
		"port", cfg.Server.Port,
		"source", cfg.Source.Kind,
		"backend", cfg.Index.Backend,
		"instance", instance,
	)

	m := metrics.New()
	g, gctx := errgroup.WithContext(ctx)

	var pipeline *analyticsPipeline
	var tracker analytics.Tracker
	var snapshots analytics.SnapshotReader
	if cfg.Analytics.Enabled {
		pipeline = newAnalyticsPipeline(cfg, instance)
		defer pipeline.Close()
		tracker = pipeline.collector
		g.Go(func() error { return pipeline.aggregator.Start(gctx) })
		slog.Info("analytics enabled", "kafka", cfg.Kafka.Enabled)

		if cfg.Analytics.SnapshotInterval > 0 {
			store, err := startSnapshots(gctx, g, cfg, pipeline.aggregator)
			if err != nil {
				slog.Warn("analytics snapshots disabled", "error", err)
			} else {
				snapshots = store
			}
		}
	}

	a, src, closeSource, err := newApp(ctx, cfg, appDeps{metrics: m, tracker: tracker})
	if err != nil {
		return err
	}
	defer closeSource()

	checker := health.NewChecker()
	checker.Register("quotes", lifecycleCheck(a))

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis)
			a.OnInstall(func(s *app.Snapshot) {
				if n, err := queryCache.Invalidate(context.Background()); err != nil {
					slog.Warn("cache invalidation after install failed", "generation", s.Generation, "error", err)
				} else {
					slog.Debug("cache invalidated after install", "generation", s.Generation, "keys", n)
				}
			})
			checker.RegisterOptional("redis", func(ctx context.Context) health.ComponentHealth {
				if err := redisClient.Ping(ctx); err != nil {
					return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	if httpSrc, ok := src.(*source.HTTP); ok {
		checker.RegisterOptional("source", func(ctx context.Context) health.ComponentHealth {
			if st := httpSrc.BreakerState(); st != resilience.StateClosed {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + st.String()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	formatter, err := presenter.NewDateFormatter(cfg.Presenter)
	if err != nil {
		return err
	}
	execOpts := executor.Options{
		Search:  cfg.Search,
		Metrics: m,
		Tracker: tracker,
		Tracing: cfg.Tracing.Enabled,
	}
	var cacheAdmin handler.CacheAdmin
	if queryCache != nil {
		execOpts.Cache = queryCache
		cacheAdmin = queryCache
	}
	exec := executor.New(a, execOpts)

	mux := http.NewServeMux()
	handler.New(exec, a, cacheAdmin, formatter).Register(mux)
	web.New(exec, a, formatter, m, cfg.Server.AllowOrigins).Register(mux)
	if pipeline != nil {
		analytics.NewHandler(pipeline.aggregator, snapshots).Register(mux)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Server.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.AllowOrigins
	}
	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := ratelimit.New(cfg.Server.RateLimit, time.Minute)
		g.Go(func() error {
			limiter.Run(gctx, 5*time.Minute)
			return nil
		})
		chain = middleware.RateLimit(limiter, time.Minute)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(corsCfg)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		slog.Info("quotesearch listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Port, prometheus.DefaultGatherer, cfg.Server.ShutdownTimeout)
		})
	}

	g.Go(func() error {
		if err := a.Load(gctx); err != nil && !errors.Is(err, app.ErrSuperseded) {
			slog.Error("initial load failed", "source", src.Name(), "error", err)
		}
		return nil
	})

	if file, ok := src.(*source.File); ok && cfg.Source.Watch {
		watcher := source.NewWatcher(file.Pattern(), cfg.Source.WatchDebounce, a.Reload)
		g.Go(func() error { return watcher.Run(gctx) })
	}

	if cfg.Kafka.Enabled {
		reloads := consumer.New(kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.QuotesUpdated,
			"reload-"+instance,
			consumer.HandleMessage(a, src.Name()),
		))
		defer reloads.Close()
		g.Go(func() error { return reloads.Start(gctx) })
	}

	err = g.Wait()
	a.Wait()
	slog.Info("quotesearch stopped")
	return err
}

func startSnapshots(ctx context.Context, g *errgroup.Group, cfg *config.Config, agg *analytics.Aggregator) (*aggregator.Store, error) {
	client, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	store := aggregator.NewStore(client)
	if err := store.EnsureSchema(ctx); err != nil {
		client.Close()
		return nil, err
	}
	g.Go(func() error {
		defer client.Close()
		return store.Run(ctx, agg, cfg.Analytics.SnapshotInterval)
	})
	return store, nil
}

func lifecycleCheck(a *app.App) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		st := a.Status()
		switch st.State {
		case app.StateReady:
			msg := fmt.Sprintf("generation %d, %d quotes", st.Generation, st.Documents)
			if st.Message != "" {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: msg + ", last reload failed: " + st.Message}
			}
			return health.ComponentHealth{Status: health.StatusUp, Message: msg}
		case app.StateFailed:
			return health.ComponentHealth{Status: health.StatusDown, Message: st.Message}
		default:
			return health.ComponentHealth{Status: health.StatusDown, Message: st.State.String()}
		}
	}
}
