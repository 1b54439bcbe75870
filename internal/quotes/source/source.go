// Package source fetches raw quote collections from the places a collection
// can live: an embedded literal, JSON files on disk, a remote HTTP endpoint,
// a Postgres table or a Firestore collection.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
)

// Source produces the raw records of one quote collection. Fetch returns the
// full collection each time; validation happens in the caller.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]quotes.RawRecord, error)
}

// DecodeCollection reads a JSON array of quote objects. An element that is
// not a valid quote object is kept with DecodeErr set.
func DecodeCollection(r io.Reader) ([]quotes.RawRecord, error) {
	var elems []json.RawMessage
	if err := json.NewDecoder(r).Decode(&elems); err != nil {
		return nil, fmt.Errorf("%w: decoding quote collection: %v", apperrors.ErrSourceUnavailable, err)
	}
	records := make([]quotes.RawRecord, len(elems))
	for i, elem := range elems {
		if err := json.Unmarshal(elem, &records[i]); err != nil {
			records[i] = quotes.RawRecord{DecodeErr: fmt.Errorf("decoding element %d: %w", i, err)}
		}
	}
	return records, nil
}

// Literal serves an in-memory collection.
type Literal struct {
	name    string
	records []quotes.RawRecord
}

// NewLiteral wraps records as a Source.
func NewLiteral(name string, records []quotes.RawRecord) *Literal {
	return &Literal{name: name, records: records}
}

func (l *Literal) Name() string { return l.name }

func (l *Literal) Fetch(ctx context.Context) ([]quotes.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]quotes.RawRecord(nil), l.records...), nil
}
