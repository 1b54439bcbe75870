package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "<alice> who deploys on a friday anyway",
	"medium": `<bob> the build is broken again
<carol> did you run the tests before merging
<bob> the tests were passing on my machine
<carol> your machine is not production`,
	"long": strings.Repeat(`<dave> there are only two hard things in computer science
<erin> cache invalidation, naming things and off by one errors
<dave> you forgot the rubber duck
<erin> the rubber duck is load bearing infrastructure at this point
`, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokenizer.Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokenizer.Tokenize(text)
		}
	})
}

func BenchmarkTerm(b *testing.B) {
	words := []string{
		"deploying", "merged", "conflicts", "passing",
		"refactoring", "invalidation", "weekends",
		"Production", "segfaults", "standups",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			tokenizer.Term(w)
		}
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	baseLine := "<frank> it compiles so it must be correct\n"
	for _, size := range []int{10, 100, 500, 1000, 5000} {
		text := strings.Repeat(baseLine, size/len(baseLine)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokenizer.Tokenize(text)
			}
		})
	}
}

func BenchmarkMemoryIndexAdd(b *testing.B) {
	docs := syntheticDocs(1000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := index.NewMemoryIndex()
		for _, d := range docs {
			m.AddDocument(d.ID, map[string][]tokenizer.Token{
				index.FieldText:  tokenizer.Tokenize(d.Text),
				index.FieldUsers: tokenizer.Keywords(d.Users),
			})
		}
	}
}

func BenchmarkMemoryIndexSnapshot(b *testing.B) {
	m := index.NewMemoryIndex()
	for _, d := range syntheticDocs(1000) {
		m.AddDocument(d.ID, map[string][]tokenizer.Token{
			index.FieldText:  tokenizer.Tokenize(d.Text),
			index.FieldUsers: tokenizer.Keywords(d.Users),
		})
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Snapshot()
	}
}
