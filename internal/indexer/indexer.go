// Package indexer builds the searchable index over a loaded quote store.
// An index is built in full from one store snapshot and is read-only
// afterwards; any change to the collection means building a new one.
package indexer

import (
	"context"
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/config"
)

// Backend names accepted by config index.backend.
const (
	BackendBleve  = "bleve"
	BackendNative = "native"
)

// Hit is one ranked reference into the store that the index was built from.
type Hit struct {
	Ref   string  `json:"ref"`
	Score float64 `json:"score"`
}

// Index answers free-text queries with refs ordered by descending score,
// ties broken by ref. limit <= 0 returns every hit.
type Index interface {
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
	DocCount() int
	Close() error
}

// Builder turns a document set into an Index.
type Builder interface {
	Name() string
	Build(ctx context.Context, docs []*quotes.Document) (Index, error)
}

type builderFunc struct {
	name  string
	build func(ctx context.Context, docs []*quotes.Document) (Index, error)
}

func (b builderFunc) Name() string { return b.name }

func (b builderFunc) Build(ctx context.Context, docs []*quotes.Document) (Index, error) {
	return b.build(ctx, docs)
}

// NewBuilder returns the builder for cfg.Backend.
func NewBuilder(cfg config.IndexConfig) (Builder, error) {
	switch cfg.Backend {
	case BackendBleve, "":
		return builderFunc{name: BackendBleve, build: BuildBleve}, nil
	case BackendNative:
		return builderFunc{name: BackendNative, build: BuildNative}, nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}

func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ref < hits[j].Ref
	})
}
