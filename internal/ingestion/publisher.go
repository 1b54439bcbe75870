// Package ingestion validates a quote collection, writes the accepted quotes
// to a writable store and announces the change on Kafka so running servers
// reload.
package ingestion

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/kafka"
)

// Sink is satisfied by *source.Postgres.
type Sink interface {
	Name() string
	EnsureTable(ctx context.Context) error
	Seed(ctx context.Context, docs []*quotes.Document) error
}

// Announcer is satisfied by *kafka.Producer.
type Announcer interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Receipt struct {
	Sink      string        `json:"sink"`
	Written   int           `json:"written"`
	Report    quotes.Report `json:"report"`
	Revision  string        `json:"revision"`
	Announced bool          `json:"announced"`
}

// Publisher coordinates the write and the change announcement.
type Publisher struct {
	sink      Sink
	announcer Announcer
	logger    *slog.Logger
}

// New builds a Publisher. announcer may be nil when Kafka is disabled.
func New(sink Sink, announcer Announcer) *Publisher {
	return &Publisher{
		sink:      sink,
		announcer: announcer,
		logger:    slog.Default().With("component", "ingestion"),
	}
}

// Ingest validates records with the same rules a load applies, writes the
// accepted ones in a single transaction and publishes an UpdateEvent. A
// failed announcement is logged; the write has already happened.
func (p *Publisher) Ingest(ctx context.Context, records []quotes.RawRecord) (*Receipt, error) {
	store, report := quotes.NewStore(records)
	if store.Len() == 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"no valid quotes to ingest (%d rejected)", len(report.Rejected))
	}
	for _, r := range report.Rejected {
		p.logger.Warn("skipping rejected record", "index", r.Index, "id", r.ID, "reason", r.Reason)
	}

	if err := p.sink.EnsureTable(ctx); err != nil {
		return nil, err
	}
	docs := store.All()
	if err := p.sink.Seed(ctx, docs); err != nil {
		return nil, fmt.Errorf("writing to %s: %w", p.sink.Name(), err)
	}

	receipt := &Receipt{
		Sink:     p.sink.Name(),
		Written:  len(docs),
		Report:   report,
		Revision: revision(docs),
	}
	if p.announcer == nil {
		return receipt, nil
	}
	event := kafka.Event{
		Key:   receipt.Sink,
		Value: consumer.UpdateEvent{Source: receipt.Sink, Revision: receipt.Revision},
	}
	if err := p.announcer.Publish(ctx, event); err != nil {
		p.logger.Error("failed to announce update, running servers will not reload",
			"sink", receipt.Sink,
			"revision", receipt.Revision,
			"error", err,
		)
		return receipt, nil
	}
	receipt.Announced = true
	p.logger.Info("update announced", "sink", receipt.Sink, "revision", receipt.Revision, "written", receipt.Written)
	return receipt, nil
}

// revision is a short content hash over the written quotes.
func revision(docs []*quotes.Document) string {
	h := sha256.New()
	for _, d := range docs {
		fmt.Fprintf(h, "%s\x00%s\x00%d\x00", d.ID, d.Text, d.Uploaded.UnixNano())
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}
