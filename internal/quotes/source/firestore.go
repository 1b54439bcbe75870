package source

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
)

// Firestore reads every document of a collection as a quote. The document
// id stands in when the data has no "id" field.
type Firestore struct {
	client     *firestore.Client
	collection string
}

func NewFirestore(ctx context.Context, projectID, collection string) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: creating firestore client: %v", apperrors.ErrSourceUnavailable, err)
	}
	if collection == "" {
		collection = "quotes"
	}
	return &Firestore{client: client, collection: collection}, nil
}

func (f *Firestore) Name() string { return "firestore:" + f.collection }

func (f *Firestore) Fetch(ctx context.Context) ([]quotes.RawRecord, error) {
	iter := f.client.Collection(f.collection).Documents(ctx)
	defer iter.Stop()

	var records []quotes.RawRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrSourceUnavailable, f.collection, err)
		}
		records = append(records, recordFromMap(snap.Data(), snap.Ref.ID))
	}
	return records, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func recordFromMap(data map[string]interface{}, docID string) quotes.RawRecord {
	var rec quotes.RawRecord
	switch id := data["id"].(type) {
	case int64:
		rec.ID = quotes.RawID(id)
	case string:
		rec.ID = quotes.RawID(id)
	case nil:
		if docID != "" {
			rec.ID = quotes.RawID(docID)
		}
	default:
		rec.DecodeErr = fmt.Errorf("id has unsupported type %T", id)
		return rec
	}

	for _, field := range []struct {
		key string
		dst **[]string
	}{{"users", &rec.Users}, {"lines", &rec.Lines}} {
		v, ok := data[field.key]
		if !ok || v == nil {
			continue
		}
		arr, ok := v.([]interface{})
		if !ok {
			rec.DecodeErr = fmt.Errorf("%s has unsupported type %T", field.key, v)
			return rec
		}
		out := make([]string, 0, len(arr))
		for i, item := range arr {
			s, ok := item.(string)
			if !ok {
				rec.DecodeErr = fmt.Errorf("%s[%d] has unsupported type %T", field.key, i, item)
				return rec
			}
			out = append(out, s)
		}
		*field.dst = &out
	}

	switch up := data["uploaded"].(type) {
	case string:
		rec.Uploaded = &up
	case time.Time:
		s := up.UTC().Format(time.RFC3339Nano)
		rec.Uploaded = &s
	case nil:
	default:
		rec.DecodeErr = fmt.Errorf("uploaded has unsupported type %T", up)
	}
	return rec
}
