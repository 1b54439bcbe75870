package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/kafka"
)

const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	RecentQueries     int64            `json:"recent_queries"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	DanglingRefs      int64            `json:"dangling_refs"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
	Loads             map[string]int64 `json:"loads"`
	LastLoad          *LoadEvent       `json:"last_load,omitempty"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds search and load events into running stats. It is fed
// either directly as a Tracker or from the analytics Kafka topic.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     int64
	recentQueries     int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	dangling          int64
	latencies         []int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	loads             map[string]int64
	lastLoad          *LoadEvent
	startTime         time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		loads:             make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Consume attaches a Kafka consumer that Start will run.
func (a *Aggregator) Consume(consumer *kafka.Consumer) {
	a.consumer = consumer
}

// Start blocks consuming events until ctx is cancelled. Without a consumer
// it returns immediately.
func (a *Aggregator) Start(ctx context.Context) error {
	if a.consumer == nil {
		return nil
	}
	a.logger.Info("analytics aggregator consuming")
	return a.consumer.Start(ctx)
}

// Track records one event in process.
func (a *Aggregator) Track(_ string, value any) {
	switch ev := value.(type) {
	case SearchEvent:
		a.recordSearchEvent(ev)
	case *SearchEvent:
		a.recordSearchEvent(*ev)
	case LoadEvent:
		a.recordLoadEvent(ev)
	case *LoadEvent:
		a.recordLoadEvent(*ev)
	default:
		a.logger.Warn("unknown analytics event", "type", fmt.Sprintf("%T", value))
	}
}

// HandleEvent decodes analytics messages from Kafka into agg.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		var head struct {
			Type EventType `json:"type"`
		}
		if err := json.Unmarshal(value, &head); err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch head.Type {
		case EventLoad:
			ev, err := kafka.DecodeJSON[LoadEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode load event", "error", err)
				return nil
			}
			agg.recordLoadEvent(ev)
		case EventSearch, EventZeroResult:
			ev, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.recordSearchEvent(ev)
		default:
			agg.logger.Warn("skipping analytics event", "key", string(key), "type", head.Type)
		}
		return nil
	}
}

func (a *Aggregator) recordSearchEvent(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	if event.Mode == "recent" {
		a.recentQueries++
	}
	if event.CacheHit {
		a.cacheHits++
	} else if event.Mode == "search" {
		a.cacheMisses++
	}
	a.dangling += int64(event.Dangling)

	if len(a.latencies) >= maxLatencySamples {
		a.latencies = a.latencies[1:]
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	if event.Mode != "recent" {
		a.queryCounts[event.Query]++
	}
	if event.Returned == 0 {
		a.zeroResults++
		a.zeroResultQueries[event.Query]++
	}
}

func (a *Aggregator) recordLoadEvent(event LoadEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loads[event.Status]++
	if event.Status != "stale" {
		ev := event
		a.lastLoad = &ev
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		RecentQueries:   a.recentQueries,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
		DanglingRefs:    a.dangling,
		Loads:           make(map[string]int64, len(a.loads)),
	}
	for k, v := range a.loads {
		stats.Loads[k] = v
	}
	if a.lastLoad != nil {
		ev := *a.lastLoad
		stats.LastLoad = &ev
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
