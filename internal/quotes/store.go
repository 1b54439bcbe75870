package quotes

import (
	"fmt"
	"log/slog"

	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
)

// Rejection describes one raw record that did not make it into the store.
type Rejection struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

// Report summarises a store build.
type Report struct {
	Accepted int         `json:"accepted"`
	Rejected []Rejection `json:"rejected"`
}

// RejectedByReason counts rejections per reason.
func (r Report) RejectedByReason() map[string]int {
	counts := make(map[string]int)
	for _, rej := range r.Rejected {
		counts[rej.Reason]++
	}
	return counts
}

// Store is an immutable mapping from quote ID to Document.
type Store struct {
	docs    map[string]*Document
	ordered []*Document
}

// NewStore validates records and builds a Store from the ones that pass.
// Malformed records and repeated IDs are skipped and reported; the first
// occurrence of an ID wins.
func NewStore(records []RawRecord) (*Store, Report) {
	logger := slog.Default().With("component", "document-store")
	s := &Store{
		docs:    make(map[string]*Document, len(records)),
		ordered: make([]*Document, 0, len(records)),
	}
	var report Report

	for i, raw := range records {
		doc, err := Validate(raw)
		if err == nil {
			if _, exists := s.docs[doc.ID]; exists {
				err = fmt.Errorf("%w: %s", apperrors.ErrDuplicateID, doc.ID)
			}
		}
		if err != nil {
			rej := Rejection{
				Index:  i,
				Reason: RejectionReason(err),
				Detail: err.Error(),
			}
			if id, idErr := normalizeID(raw.ID); idErr == nil {
				rej.ID = id
			}
			report.Rejected = append(report.Rejected, rej)
			logger.Warn("skipping quote record",
				"index", rej.Index,
				"id", rej.ID,
				"reason", rej.Reason,
				"detail", rej.Detail,
			)
			continue
		}
		s.docs[doc.ID] = doc
		s.ordered = append(s.ordered, doc)
	}

	SortByRecency(s.ordered)
	report.Accepted = len(s.ordered)
	return s, report
}

// Get returns the document stored under id.
func (s *Store) Get(id string) (*Document, bool) {
	doc, ok := s.docs[id]
	return doc, ok
}

// Len returns the number of documents.
func (s *Store) Len() int {
	return len(s.ordered)
}

// All returns every document, newest first.
func (s *Store) All() []*Document {
	return append([]*Document(nil), s.ordered...)
}

// Recent returns at most n documents, newest first.
func (s *Store) Recent(n int) []*Document {
	if n < 0 {
		n = 0
	}
	if n > len(s.ordered) {
		n = len(s.ordered)
	}
	return append([]*Document(nil), s.ordered[:n]...)
}
