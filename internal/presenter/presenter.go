// Package presenter holds the result list shown to a user and re-renders
// its observers whenever the list is replaced.
package presenter

import (
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/config"
)

// DisplayRecord is one quote as a view renders it.
type DisplayRecord struct {
	ID          string   `json:"id"`
	DisplayDate string   `json:"displayDate"`
	Lines       []string `json:"lines"`
}

// DateFormatter renders upload instants in a fixed layout and zone.
type DateFormatter struct {
	layout string
	loc    *time.Location
}

// NewDateFormatter falls back to "Jan 2, 2006" and UTC for empty settings.
func NewDateFormatter(cfg config.PresenterConfig) (DateFormatter, error) {
	layout := cfg.DateLayout
	if layout == "" {
		layout = "Jan 2, 2006"
	}
	loc := time.UTC
	if cfg.TimeZone != "" {
		l, err := time.LoadLocation(cfg.TimeZone)
		if err != nil {
			return DateFormatter{}, err
		}
		loc = l
	}
	return DateFormatter{layout: layout, loc: loc}, nil
}

func (f DateFormatter) Format(t time.Time) string {
	layout, loc := f.layout, f.loc
	if layout == "" {
		layout = "Jan 2, 2006"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(layout)
}

// Records converts documents, in order, to display records.
func (f DateFormatter) Records(docs []*quotes.Document) []DisplayRecord {
	out := make([]DisplayRecord, len(docs))
	for i, d := range docs {
		out[i] = DisplayRecord{
			ID:          d.ID,
			DisplayDate: f.Format(d.Uploaded),
			Lines:       slices.Clone(d.Lines),
		}
	}
	return out
}

// Presenter owns the current result list.
type Presenter struct {
	mu        sync.Mutex
	results   []DisplayRecord
	observers map[int]func([]DisplayRecord)
	nextID    int
}

func New() *Presenter {
	return &Presenter{
		results:   []DisplayRecord{},
		observers: make(map[int]func([]DisplayRecord)),
	}
}

// Subscribe registers fn to receive every rendered list. fn must not call
// back into the presenter.
func (p *Presenter) Subscribe(fn func([]DisplayRecord)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.observers[id] = fn
	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

// Render replaces the result list and notifies every observer with its own
// copy. Observers run in subscription order under the presenter lock, so
// renders are seen in the order they happened.
func (p *Presenter) Render(results []DisplayRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = cloneRecords(results)
	ids := make([]int, 0, len(p.observers))
	for id := range p.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		p.observers[id](cloneRecords(p.results))
	}
}

func (p *Presenter) Results() []DisplayRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneRecords(p.results)
}

func cloneRecords(in []DisplayRecord) []DisplayRecord {
	out := make([]DisplayRecord, len(in))
	for i, r := range in {
		out[i] = DisplayRecord{ID: r.ID, DisplayDate: r.DisplayDate, Lines: slices.Clone(r.Lines)}
	}
	return out
}
