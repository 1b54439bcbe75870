package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/kafka"
)

type fakeSink struct {
	ensured bool
	written []*quotes.Document
	err     error
}

func (s *fakeSink) Name() string { return "postgres:quotes" }

func (s *fakeSink) EnsureTable(ctx context.Context) error {
	s.ensured = true
	return nil
}

func (s *fakeSink) Seed(ctx context.Context, docs []*quotes.Document) error {
	if s.err != nil {
		return s.err
	}
	s.written = append(s.written, docs...)
	return nil
}

type fakeAnnouncer struct {
	events []kafka.Event
	err    error
}

func (a *fakeAnnouncer) Publish(ctx context.Context, event kafka.Event) error {
	if a.err != nil {
		return a.err
	}
	a.events = append(a.events, event)
	return nil
}

func raw(id any, line, uploaded string) quotes.RawRecord {
	users := []string{"alice"}
	lines := []string{line}
	return quotes.RawRecord{ID: quotes.RawID(id), Users: &users, Lines: &lines, Uploaded: &uploaded}
}

var records = []quotes.RawRecord{
	raw(1, "hello world", "2020-01-01T00:00Z"),
	raw(2, "goodbye", "2021-01-01T00:00Z"),
	raw(3, "bad date", "yesterday"),
}

func TestIngestWritesAndAnnounces(t *testing.T) {
	sink := &fakeSink{}
	ann := &fakeAnnouncer{}

	receipt, err := New(sink, ann).Ingest(context.Background(), records)
	require.NoError(t, err)

	assert.True(t, sink.ensured)
	assert.Len(t, sink.written, 2)
	assert.Equal(t, 2, receipt.Written)
	assert.Len(t, receipt.Report.Rejected, 1)
	assert.Len(t, receipt.Revision, 12)
	assert.True(t, receipt.Announced)

	require.Len(t, ann.events, 1)
	assert.Equal(t, "postgres:quotes", ann.events[0].Key)
	assert.Equal(t, consumer.UpdateEvent{Source: "postgres:quotes", Revision: receipt.Revision}, ann.events[0].Value)
}

func TestIngestRevisionIsStable(t *testing.T) {
	a, err := New(&fakeSink{}, nil).Ingest(context.Background(), records)
	require.NoError(t, err)
	b, err := New(&fakeSink{}, nil).Ingest(context.Background(), records[:2])
	require.NoError(t, err)
	assert.Equal(t, a.Revision, b.Revision)
	assert.False(t, a.Announced)

	c, err := New(&fakeSink{}, nil).Ingest(context.Background(), records[:1])
	require.NoError(t, err)
	assert.NotEqual(t, a.Revision, c.Revision)
}

func TestIngestNothingValid(t *testing.T) {
	sink := &fakeSink{}
	_, err := New(sink, nil).Ingest(context.Background(), records[2:])
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.False(t, sink.ensured)
}

func TestIngestWriteFailureSkipsAnnouncement(t *testing.T) {
	ann := &fakeAnnouncer{}
	_, err := New(&fakeSink{err: errors.New("connection reset")}, ann).Ingest(context.Background(), records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Empty(t, ann.events)
}

func TestIngestAnnouncementFailureIsNotFatal(t *testing.T) {
	sink := &fakeSink{}
	receipt, err := New(sink, &fakeAnnouncer{err: errors.New("broker down")}).Ingest(context.Background(), records)
	require.NoError(t, err)
	assert.False(t, receipt.Announced)
	assert.Len(t, sink.written, 2)
}
