package benchmark

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
)

var vocabulary = strings.Fields(`hello world goodbye coffee deploy friday
	production tests passing broken build merge conflict lunch meeting standup
	compiler segfault pointer cache invalidation naming things off by one
	keyboard monitor rubber duck refactor legacy spaghetti yak shave weekend`)

var nicks = []string{"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi"}

// syntheticDocs builds n deterministic quotes of one to four lines each.
func syntheticDocs(n int) []*quotes.Document {
	rng := rand.New(rand.NewSource(42))
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := make([]*quotes.Document, n)
	for i := range docs {
		lines := make([]string, 1+rng.Intn(4))
		for l := range lines {
			words := make([]string, 4+rng.Intn(8))
			for w := range words {
				words[w] = vocabulary[rng.Intn(len(vocabulary))]
			}
			lines[l] = fmt.Sprintf("<%s> %s", nicks[rng.Intn(len(nicks))], strings.Join(words, " "))
		}
		author := []string{nicks[rng.Intn(len(nicks))]}
		uploaded := base.Add(time.Duration(rng.Intn(3000*24)) * time.Hour)
		docs[i] = quotes.NewDocument(fmt.Sprint(i+1), author, lines, uploaded)
	}
	return docs
}

// syntheticRecords renders syntheticDocs in the wire shape a source returns.
func syntheticRecords(n int) []quotes.RawRecord {
	docs := syntheticDocs(n)
	recs := make([]quotes.RawRecord, len(docs))
	for i, d := range docs {
		users := d.Users
		lines := d.Lines
		uploaded := d.Uploaded.Format("2006-01-02T15:04Z")
		recs[i] = quotes.RawRecord{ID: quotes.RawID(i + 1), Users: &users, Lines: &lines, Uploaded: &uploaded}
	}
	return recs
}
