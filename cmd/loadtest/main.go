// Command loadtest drives the quote search API with concurrent workers and
// reports throughput, latency percentiles, cache hits and status codes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var defaultQueries = []string{
	"",
	"hello",
	"goodbye",
	"the",
	"lol",
	"users:alice",
	"coffee OR tea",
	"-monday work",
	"why",
	"night",
}

type options struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	queries     []string
}

type stats struct {
	total     atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64
	zeroHits  atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func newStats() *stats {
	return &stats{
		latencies: make([]time.Duration, 0, 100000),
		codes:     make(map[int]int64),
	}
}

func (s *stats) record(d time.Duration, code int, body *searchBody, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if code < 200 || code >= 300 {
		s.failed.Add(1)
	}
	if body != nil {
		if body.CacheHit {
			s.cacheHits.Add(1)
		}
		if len(body.SearchResults) == 0 {
			s.zeroHits.Add(1)
		}
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.codes[code]++
	s.mu.Unlock()
}

type searchBody struct {
	CacheHit      bool              `json:"cache_hit"`
	SearchResults []json.RawMessage `json:"search_results"`
}

func main() {
	opts := options{}
	cmd := &cobra.Command{
		Use:          "loadtest",
		Short:        "Load test GET /api/v1/quotes/search",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.concurrency <= 0 {
				return fmt.Errorf("concurrency must be positive")
			}
			if len(opts.queries) == 0 {
				opts.queries = defaultQueries
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return run(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "base URL of the quote service")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 10, "number of concurrent workers")
	cmd.Flags().DurationVar(&opts.duration, "duration", 30*time.Second, "test duration")
	cmd.Flags().StringArrayVar(&opts.queries, "query", nil, "query to cycle through (repeatable)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	fmt.Println("=== Quote Search Load Test ===")
	fmt.Printf("Target:      %s\n", opts.baseURL)
	fmt.Printf("Concurrency: %d\n", opts.concurrency)
	fmt.Printf("Duration:    %s\n", opts.duration)
	fmt.Printf("Queries:     %d unique\n\n", len(opts.queries))

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        opts.concurrency * 2,
			MaxIdleConnsPerHost: opts.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	s := newStats()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.concurrency; w++ {
		next := w
		g.Go(func() error {
			for gctx.Err() == nil {
				q := opts.queries[next%len(opts.queries)]
				next++
				start := time.Now()
				code, body, err := search(gctx, client, opts.baseURL, q)
				if gctx.Err() != nil {
					return nil
				}
				s.record(time.Since(start), code, body, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return report(s, opts.duration)
}

func search(ctx context.Context, client *http.Client, baseURL, q string) (int, *searchBody, error) {
	u := fmt.Sprintf("%s/api/v1/quotes/search?q=%s", baseURL, url.QueryEscape(q))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil, nil
	}
	var body searchBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, &body, nil
}

func report(s *stats, duration time.Duration) error {
	total := s.total.Load()
	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Failed:          %d\n", s.failed.Load())
	fmt.Printf("Cache Hits:      %d\n", s.cacheHits.Load())
	fmt.Printf("Zero Results:    %d\n", s.zeroHits.Load())
	if total == 0 {
		return fmt.Errorf("no requests completed, is the service running?")
	}
	fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latencies) > 0 {
		lat := append([]time.Duration(nil), s.latencies...)
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
		fmt.Println("\n=== Latency ===")
		fmt.Printf("Min:    %s\n", lat[0])
		fmt.Printf("P50:    %s\n", percentile(lat, 50))
		fmt.Printf("P90:    %s\n", percentile(lat, 90))
		fmt.Printf("P99:    %s\n", percentile(lat, 99))
		fmt.Printf("Max:    %s\n", lat[len(lat)-1])
	}

	fmt.Println("\n=== Status Codes ===")
	codes := make([]int, 0, len(s.codes))
	for code := range s.codes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, s.codes[code])
	}
	return nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
