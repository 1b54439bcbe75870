package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/presenter"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 80))
	assert.Equal(t, "hell…", truncate("hello world", 5))
	assert.Equal(t, "hello world", truncate("hello world", 0))
	assert.Equal(t, "né…", truncate("néant", 3))
}

func TestPrintRecords(t *testing.T) {
	var buf bytes.Buffer
	printRecords(&buf, []presenter.DisplayRecord{
		{ID: "2", DisplayDate: "Jan 1, 2021", Lines: []string{"goodbye"}},
		{ID: "1", DisplayDate: "Jan 1, 2020", Lines: []string{"hello world", "second"}},
	}, 80)

	assert.Equal(t, "#2  Jan 1, 2021\n  goodbye\n\n#1  Jan 1, 2020\n  hello world\n  second\n", buf.String())
}

func TestPrintNoRecords(t *testing.T) {
	var buf bytes.Buffer
	printRecords(&buf, nil, 80)
	assert.Equal(t, "No quotes matching query.\n", buf.String())
}
