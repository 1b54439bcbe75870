// Package quotes defines the quote Document, the strict validation applied to
// raw records at the load boundary, and the immutable Document Store.
package quotes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// TextSeparator joins a quote's lines into its indexed text.
const TextSeparator = "\n"

// Document is one validated quote. Documents are never mutated after the
// store that holds them is built.
type Document struct {
	ID       string    `json:"id"`
	Users    []string  `json:"users"`
	Lines    []string  `json:"lines"`
	Uploaded time.Time `json:"uploaded"`
	Text     string    `json:"-"`
}

// NewDocument copies users and lines and derives Text from the lines.
func NewDocument(id string, users, lines []string, uploaded time.Time) *Document {
	return &Document{
		ID:       id,
		Users:    slices.Clone(users),
		Lines:    slices.Clone(lines),
		Uploaded: uploaded.UTC(),
		Text:     strings.Join(lines, TextSeparator),
	}
}

// RawRecord is the wire shape of a quote. Pointer fields distinguish a
// missing key from an empty value. DecodeErr carries a per-element decode
// failure so one bad element does not sink the whole collection.
type RawRecord struct {
	ID       json.RawMessage `json:"id"`
	Users    *[]string       `json:"users"`
	Lines    *[]string       `json:"lines"`
	Uploaded *string         `json:"uploaded"`

	DecodeErr error `json:"-"`
}

// RawID encodes an integer or string identifier the way it appears in JSON.
func RawID(v any) json.RawMessage {
	switch id := v.(type) {
	case int:
		return json.RawMessage(strconv.Itoa(id))
	case int64:
		return json.RawMessage(strconv.FormatInt(id, 10))
	case string:
		b, _ := json.Marshal(id)
		return b
	default:
		return nil
	}
}

// normalizeID accepts a JSON integer or a non-blank JSON string.
func normalizeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("is required")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("is not a valid string: %v", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", fmt.Errorf("must not be blank")
		}
		return s, nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return "", fmt.Errorf("must be an integer or a string, got %s", raw)
	}
	return strconv.FormatInt(n, 10), nil
}

// CompareIDs orders identifiers numerically when both are integers and
// lexically otherwise, with integers first.
func CompareIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// CompareRecency orders newest upload first, then by ascending ID.
func CompareRecency(a, b *Document) int {
	if c := b.Uploaded.Compare(a.Uploaded); c != 0 {
		return c
	}
	return CompareIDs(a.ID, b.ID)
}

// SortByRecency sorts docs in place, newest first.
func SortByRecency(docs []*Document) {
	slices.SortStableFunc(docs, CompareRecency)
}
