package ranker

import "container/heap"

// better reports whether a outranks b: higher score, then lower doc id.
func better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// topK keeps the limit best docs using a bounded min-heap, returned best
// first.
func topK(docs []ScoredDoc, limit int) []ScoredDoc {
	h := make(worstFirst, 0, limit+1)
	for _, d := range docs {
		if h.Len() < limit {
			heap.Push(&h, d)
			continue
		}
		if better(d, h[0]) {
			h[0] = d
			heap.Fix(&h, 0)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredDoc)
	}
	return result
}

type worstFirst []ScoredDoc

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
