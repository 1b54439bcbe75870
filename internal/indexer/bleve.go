package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
)

const bleveBatchSize = 500

// userAnalyzer keeps each user id as one lower-cased token, so short ids
// such as "a" survive the stop-word filter the text field applies.
const userAnalyzer = "quote_user"

// queryOperators mark a query as using query-string syntax beyond plain words.
const queryOperators = `:+-"()~^*?\/{}[]!&|`

// BleveIndex is an in-memory bleve index over the text and users fields.
// Queries use bleve's query-string syntax. A query of plain words also
// matches any word that equals a user id exactly.
type BleveIndex struct {
	idx    bleve.Index
	docs   int
	logger *slog.Logger
}

func quoteMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(userAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("registering user analyzer: %w", err)
	}

	text := bleve.NewTextFieldMapping()
	text.Analyzer = en.AnalyzerName
	text.Store = false

	users := bleve.NewTextFieldMapping()
	users.Analyzer = userAnalyzer
	users.Store = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(index.FieldText, text)
	doc.AddFieldMappingsAt(index.FieldUsers, users)

	im.DefaultMapping = doc
	im.DefaultAnalyzer = en.AnalyzerName
	im.StoreDynamic = false
	return im, nil
}

// BuildBleve indexes docs into a fresh memory-only bleve index.
func BuildBleve(ctx context.Context, docs []*quotes.Document) (Index, error) {
	im, err := quoteMapping()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	b := &BleveIndex{
		idx:    idx,
		logger: slog.Default().With("component", "bleve-index"),
	}
	for start := 0; start < len(docs); start += bleveBatchSize {
		if err := ctx.Err(); err != nil {
			idx.Close()
			return nil, err
		}
		end := min(start+bleveBatchSize, len(docs))
		batch := idx.NewBatch()
		for _, doc := range docs[start:end] {
			if err := batch.Index(doc.ID, map[string]interface{}{
				index.FieldText:  doc.Text,
				index.FieldUsers: doc.Users,
			}); err != nil {
				idx.Close()
				return nil, fmt.Errorf("indexing quote %s: %w", doc.ID, err)
			}
		}
		if err := idx.Batch(batch); err != nil {
			idx.Close()
			return nil, fmt.Errorf("committing bleve batch: %w", err)
		}
	}
	b.docs = len(docs)
	b.logger.Debug("bleve index built", "docs", b.docs)
	return b, nil
}

func (b *BleveIndex) Search(ctx context.Context, text string, limit int) ([]Hit, error) {
	q, err := buildQuery(text)
	if err != nil {
		return nil, err
	}
	size := b.docs
	if limit > 0 && limit < size {
		size = limit
	}
	if size == 0 {
		return []Hit{}, nil
	}

	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	res, err := b.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{Ref: h.ID, Score: h.Score})
	}
	sortHits(hits)
	b.logger.Debug("bleve query executed", "query", text, "total", res.Total, "results", len(hits))
	return hits, nil
}

func buildQuery(text string) (query.Query, error) {
	qs := bleve.NewQueryStringQuery(text)
	if _, err := qs.Parse(); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", apperrors.ErrInvalidInput, text, err)
	}
	words := strings.Fields(text)
	parts := []query.Query{qs}
	for _, w := range words {
		if strings.ContainsAny(w, queryOperators) || w == "AND" || w == "OR" || w == "NOT" {
			return qs, nil
		}
		user := bleve.NewTermQuery(tokenizer.Keyword(w))
		user.SetField(index.FieldUsers)
		parts = append(parts, user)
	}
	return bleve.NewDisjunctionQuery(parts...), nil
}

func (b *BleveIndex) DocCount() int { return b.docs }

func (b *BleveIndex) Close() error {
	return b.idx.Close()
}
