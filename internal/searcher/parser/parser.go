// Package parser turns a free-text query into a plan for the native index.
// Words are OR-ed unless the query contains AND. NOT or a leading - excludes
// a word, a leading + is accepted and ignored, and field:word restricts a
// word to one indexed field.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/indexer/index"
)

type QueryType int

const (
	QueryOR QueryType = iota
	QueryAND
)

func (t QueryType) String() string {
	if t == QueryAND {
		return "AND"
	}
	return "OR"
}

// Term is one query word. An empty Field means every indexed field.
type Term struct {
	Field string
	Value string
}

type QueryPlan struct {
	Terms        []Term
	Type         QueryType
	ExcludeTerms []Term
	RawQuery     string
}

// Empty reports whether the plan has nothing to match or exclude.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0 && len(p.ExcludeTerms) == 0
}

func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:        make([]Term, 0),
		ExcludeTerms: make([]Term, 0),
		Type:         QueryOR,
		RawQuery:     query,
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	excludeNext := false
	for _, word := range strings.Fields(query) {
		switch word {
		case "AND":
			plan.Type = QueryAND
			continue
		case "OR":
			plan.Type = QueryOR
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		exclude := excludeNext
		switch word[0] {
		case '-':
			exclude = true
			word = word[1:]
		case '+':
			word = word[1:]
		}
		term, ok := parseTerm(word)
		if !ok {
			continue
		}
		excludeNext = false
		if exclude {
			plan.ExcludeTerms = append(plan.ExcludeTerms, term)
		} else {
			plan.Terms = append(plan.Terms, term)
		}
	}
	return plan
}

func parseTerm(word string) (Term, bool) {
	var term Term
	if field, value, found := strings.Cut(word, ":"); found && isField(field) {
		term.Field = field
		word = value
	}
	term.Value = strings.ToLower(word)
	return term, term.Value != ""
}

func isField(name string) bool {
	for _, f := range index.Fields {
		if f == name {
			return true
		}
	}
	return false
}
