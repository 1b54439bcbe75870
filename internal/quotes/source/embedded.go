package source

import (
	"bytes"
	"context"
	_ "embed"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
)

//go:embed quotes.json
var embeddedQuotes []byte

// Embedded serves the collection compiled into the binary.
type Embedded struct {
	data []byte
}

// NewEmbedded returns the built-in collection.
func NewEmbedded() *Embedded {
	return &Embedded{data: embeddedQuotes}
}

func (e *Embedded) Name() string { return "embedded" }

func (e *Embedded) Fetch(ctx context.Context) ([]quotes.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DecodeCollection(bytes.NewReader(e.data))
}
