package indexer

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/searcher/ranker"
)

// Engine is the in-process index: a per-field inverted index ranked with
// BM25.
type Engine struct {
	memIndex *index.MemoryIndex
	logger   *slog.Logger
}

func NewEngine() *Engine {
	return &Engine{
		memIndex: index.NewMemoryIndex(),
		logger:   slog.Default().With("component", "native-index"),
	}
}

// BuildNative indexes docs into a fresh Engine.
func BuildNative(ctx context.Context, docs []*quotes.Document) (Index, error) {
	e := NewEngine()
	for i, doc := range docs {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		e.IndexDocument(doc)
	}
	e.logger.Debug("native index built", "docs", e.DocCount(), "avg_doc_length", e.memIndex.AvgDocLength())
	return e, nil
}

func (e *Engine) IndexDocument(doc *quotes.Document) {
	e.memIndex.AddDocument(doc.ID, map[string][]tokenizer.Token{
		index.FieldText:  tokenizer.Tokenize(doc.Text),
		index.FieldUsers: tokenizer.Keywords(doc.Users),
	})
}

func (e *Engine) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	plan := parser.Parse(query)
	if plan.Empty() {
		return []Hit{}, nil
	}

	postingsPerTerm := make([]index.PostingList, 0, len(plan.Terms))
	for _, term := range plan.Terms {
		postingsPerTerm = append(postingsPerTerm, e.lookup(term))
	}
	excludeDocIDs := make(map[string]struct{})
	for _, term := range plan.ExcludeTerms {
		for _, p := range e.lookup(term) {
			excludeDocIDs[p.DocID] = struct{}{}
		}
	}

	if len(plan.Terms) == 0 {
		return e.allExcept(excludeDocIDs, limit), nil
	}

	var candidates map[string]struct{}
	switch plan.Type {
	case parser.QueryAND:
		candidates = intersectPostings(postingsPerTerm)
	default:
		candidates = unionPostings(postingsPerTerm)
	}
	for docID := range excludeDocIDs {
		delete(candidates, docID)
	}

	filtered := make([]index.PostingList, 0, len(postingsPerTerm))
	for _, postings := range postingsPerTerm {
		kept := make(index.PostingList, 0, len(postings))
		for _, p := range postings {
			if _, ok := candidates[p.DocID]; ok {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			filtered = append(filtered, kept)
		}
	}

	ranked := ranker.Rank(filtered, ranker.RankParams{
		TotalDocs:    int64(e.memIndex.DocCount()),
		AvgDocLength: e.memIndex.AvgDocLength(),
	}, e.memIndex.DocLength, limit)

	hits := make([]Hit, len(ranked))
	for i, r := range ranked {
		hits[i] = Hit{Ref: r.DocID, Score: r.Score}
	}
	e.logger.Debug("native query executed",
		"query", plan.RawQuery,
		"type", plan.Type.String(),
		"candidates", len(candidates),
		"results", len(hits),
	)
	return hits, nil
}

// allExcept answers a query made only of exclusions: every document that
// none of them matched, unscored.
func (e *Engine) allExcept(excluded map[string]struct{}, limit int) []Hit {
	hits := make([]Hit, 0)
	for _, id := range e.memIndex.DocIDs() {
		if _, ok := excluded[id]; ok {
			continue
		}
		hits = append(hits, Hit{Ref: id})
	}
	sortHits(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (e *Engine) DocCount() int { return e.memIndex.DocCount() }

func (e *Engine) Close() error {
	e.memIndex.Reset()
	return nil
}

// lookup gathers one query term's postings across the fields it targets,
// merging a document that matches in several fields into one posting.
func (e *Engine) lookup(term parser.Term) index.PostingList {
	fields := index.Fields
	if term.Field != "" {
		fields = []string{term.Field}
	}
	var all index.PostingList
	for _, field := range fields {
		normalized, ok := normalize(field, term.Value)
		if !ok {
			continue
		}
		all = append(all, e.memIndex.Search(field, normalized)...)
	}
	return mergePostings(all)
}

func normalize(field, value string) (string, bool) {
	if field == index.FieldUsers {
		kw := tokenizer.Keyword(value)
		return kw, kw != ""
	}
	return tokenizer.Term(value)
}

func mergePostings(postings index.PostingList) index.PostingList {
	if len(postings) <= 1 {
		return postings
	}
	seen := make(map[string]int)
	result := make(index.PostingList, 0, len(postings))
	for _, p := range postings {
		if idx, exists := seen[p.DocID]; exists {
			result[idx].Frequency += p.Frequency
			continue
		}
		seen[p.DocID] = len(result)
		result = append(result, p)
	}
	return result
}

func intersectPostings(postingsPerTerm []index.PostingList) map[string]struct{} {
	if len(postingsPerTerm) == 0 {
		return make(map[string]struct{})
	}
	shortest := 0
	for i, postings := range postingsPerTerm {
		if len(postings) < len(postingsPerTerm[shortest]) {
			shortest = i
		}
	}
	candidates := make(map[string]struct{})
	for _, p := range postingsPerTerm[shortest] {
		candidates[p.DocID] = struct{}{}
	}
	for i, postings := range postingsPerTerm {
		if i == shortest {
			continue
		}
		docSet := make(map[string]struct{}, len(postings))
		for _, p := range postings {
			docSet[p.DocID] = struct{}{}
		}
		for docID := range candidates {
			if _, exists := docSet[docID]; !exists {
				delete(candidates, docID)
			}
		}
	}
	return candidates
}

func unionPostings(postingsPerTerm []index.PostingList) map[string]struct{} {
	result := make(map[string]struct{})
	for _, postings := range postingsPerTerm {
		for _, p := range postings {
			result[p.DocID] = struct{}{}
		}
	}
	return result
}
