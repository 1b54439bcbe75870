package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/app"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes/source"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/config"
)

var backends = []string{indexer.BackendBleve, indexer.BackendNative}

var benchQueries = []string{
	"coffee",
	"deploy friday",
	"production AND broken",
	"merge NOT conflict",
	"users:alice cache",
	"rubber duck refactor legacy spaghetti",
}

func BenchmarkQueryParse(b *testing.B) {
	for _, q := range benchQueries {
		b.Run(q, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				parser.Parse(q)
			}
		})
	}
}

func BenchmarkBM25Ranking(b *testing.B) {
	for _, docCount := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("docs=%d", docCount), func(b *testing.B) {
			postings := make(index.PostingList, docCount)
			for i := range postings {
				postings[i] = index.Posting{
					DocID:     fmt.Sprintf("%d", i),
					Frequency: 1 + i%5,
					Positions: []int{i % 20},
				}
			}
			params := ranker.RankParams{TotalDocs: int64(docCount * 2), AvgDocLength: 24}
			docLength := func(string) int { return 24 }

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ranker.Rank([]index.PostingList{postings}, params, docLength, 0)
			}
		})
	}
}

func BenchmarkBM25MultiTerm(b *testing.B) {
	const docCount = 5000
	for _, termCount := range []int{1, 3, 5} {
		b.Run(fmt.Sprintf("terms=%d", termCount), func(b *testing.B) {
			perTerm := make([]index.PostingList, termCount)
			for t := range perTerm {
				postings := make(index.PostingList, 0, docCount/(t+1))
				for i := 0; i < docCount; i += t + 1 {
					postings = append(postings, index.Posting{DocID: fmt.Sprintf("%d", i), Frequency: 1 + (i+t)%3})
				}
				perTerm[t] = postings
			}
			params := ranker.RankParams{TotalDocs: docCount, AvgDocLength: 24}
			docLength := func(string) int { return 24 }

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ranker.Rank(perTerm, params, docLength, 100)
			}
		})
	}
}

func BenchmarkIndexBuild(b *testing.B) {
	for _, backend := range backends {
		for _, docCount := range []int{100, 1000} {
			b.Run(fmt.Sprintf("%s/docs=%d", backend, docCount), func(b *testing.B) {
				builder, err := indexer.NewBuilder(config.IndexConfig{Backend: backend})
				if err != nil {
					b.Fatal(err)
				}
				docs := syntheticDocs(docCount)
				ctx := context.Background()

				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					idx, err := builder.Build(ctx, docs)
					if err != nil {
						b.Fatal(err)
					}
					idx.Close()
				}
			})
		}
	}
}

func BenchmarkIndexSearch(b *testing.B) {
	for _, backend := range backends {
		b.Run(backend, func(b *testing.B) {
			builder, err := indexer.NewBuilder(config.IndexConfig{Backend: backend})
			if err != nil {
				b.Fatal(err)
			}
			ctx := context.Background()
			idx, err := builder.Build(ctx, syntheticDocs(5000))
			if err != nil {
				b.Fatal(err)
			}
			defer idx.Close()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := idx.Search(ctx, benchQueries[i%len(benchQueries)], 0); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkExecutor(b *testing.B) {
	for _, backend := range backends {
		b.Run(backend, func(b *testing.B) {
			ex := loadedExecutor(b, backend, 5000)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := ex.Execute(ctx, benchQueries[i%len(benchQueries)]); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkExecutorParallel(b *testing.B) {
	for _, backend := range backends {
		b.Run(backend, func(b *testing.B) {
			ex := loadedExecutor(b, backend, 5000)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					if _, err := ex.Execute(ctx, benchQueries[i%len(benchQueries)]); err != nil {
						b.Error(err)
						return
					}
					i++
				}
			})
		})
	}
}

func BenchmarkExecutorRecent(b *testing.B) {
	ex := loadedExecutor(b, indexer.BackendNative, 5000)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ex.Execute(ctx, ""); err != nil {
			b.Fatal(err)
		}
	}
}

func loadedExecutor(b *testing.B, backend string, docCount int) *executor.Executor {
	b.Helper()
	builder, err := indexer.NewBuilder(config.IndexConfig{Backend: backend})
	if err != nil {
		b.Fatal(err)
	}
	a := app.New(app.Options{
		Source:  source.NewLiteral("bench", syntheticRecords(docCount)),
		Builder: builder,
	})
	if err := a.Load(context.Background()); err != nil {
		b.Fatal(err)
	}
	return executor.New(a, executor.Options{
		Search: config.SearchConfig{RecentLimit: 10, MaxResults: 100},
	})
}
