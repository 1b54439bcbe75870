package consumer

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReloader struct {
	n atomic.Int32
}

func (c *countingReloader) Reload(context.Context) { c.n.Add(1) }

func TestHandleMessageReloads(t *testing.T) {
	r := &countingReloader{}
	h := HandleMessage(r, "file:quotes/*.json")

	require.NoError(t, h(context.Background(), nil, []byte(`{"source":"file:quotes/*.json","revision":"7"}`)))
	require.NoError(t, h(context.Background(), nil, []byte(`{}`)))

	assert.Equal(t, int32(2), r.n.Load())
}

func TestHandleMessageIgnoresOtherSources(t *testing.T) {
	r := &countingReloader{}
	h := HandleMessage(r, "embedded")

	require.NoError(t, h(context.Background(), []byte("k"), []byte(`{"source":"http:https://example.com/quotes.json"}`)))

	assert.Equal(t, int32(0), r.n.Load())
}

func TestHandleMessageSkipsBadPayload(t *testing.T) {
	r := &countingReloader{}
	h := HandleMessage(r, "embedded")

	assert.NoError(t, h(context.Background(), nil, []byte(`{not json`)))
	assert.Equal(t, int32(0), r.n.Load())
}
