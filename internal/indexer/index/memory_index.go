package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer/tokenizer"
)

// MemoryIndex is a per-field inverted index: field -> term -> doc -> posting.
// It is filled once during a build and only read afterwards.
type MemoryIndex struct {
	mu          sync.RWMutex
	index       map[string]map[string]map[string]*Posting
	docLengths  map[string]int
	totalTokens int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index:      make(map[string]map[string]map[string]*Posting),
		docLengths: make(map[string]int),
	}
}

// AddDocument indexes the already tokenised fields of one document. Adding
// the same docID twice replaces nothing; callers guarantee unique ids.
func (m *MemoryIndex) AddDocument(docID string, fields map[string][]tokenizer.Token) {
	type key struct{ field, term string }
	termData := make(map[key]*Posting)
	length := 0
	for field, tokens := range fields {
		length += len(tokens)
		for _, token := range tokens {
			k := key{field, token.Term}
			p, exists := termData[k]
			if !exists {
				p = &Posting{
					DocID:     docID,
					Positions: make([]int, 0, 4),
				}
				termData[k] = p
			}
			p.Frequency++
			p.Positions = append(p.Positions, token.Position)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, posting := range termData {
		terms, ok := m.index[k.field]
		if !ok {
			terms = make(map[string]map[string]*Posting)
			m.index[k.field] = terms
		}
		if _, ok := terms[k.term]; !ok {
			terms[k.term] = make(map[string]*Posting)
		}
		terms[k.term][docID] = posting
	}
	if _, seen := m.docLengths[docID]; !seen {
		m.docLengths[docID] = length
		m.totalTokens += int64(length)
	}
}

// Search returns the postings for an already normalised term in one field,
// sorted by doc id.
func (m *MemoryIndex) Search(field, term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[field][term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Snapshot lists every field/term pair with its postings, ordered by field
// then term. Used for diagnostics and tests.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []TermEntry
	for field, terms := range m.index {
		for term, docs := range terms {
			postings := make(PostingList, 0, len(docs))
			for _, posting := range docs {
				postings = append(postings, *posting)
			}
			sort.Slice(postings, func(i, j int) bool {
				return postings[i].DocID < postings[j].DocID
			})
			entries = append(entries, TermEntry{Field: field, Term: term, Postings: postings})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Field != entries[j].Field {
			return entries[i].Field < entries[j].Field
		}
		return entries[i].Term < entries[j].Term
	})
	return entries
}

func (m *MemoryIndex) DocLength(docID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docLengths[docID]
}

// DocIDs lists every indexed document id in ascending order.
func (m *MemoryIndex) DocIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.docLengths))
	for id := range m.docLengths {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *MemoryIndex) AvgDocLength() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.docLengths) == 0 {
		return 0
	}
	return float64(m.totalTokens) / float64(len(m.docLengths))
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docLengths)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]map[string]map[string]*Posting)
	m.docLengths = make(map[string]int)
	m.totalTokens = 0
}
