package quotes

import (
	"encoding/json"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUploaded(t *testing.T) {
	accepted := map[string]time.Time{
		"2020-01-01T00:00Z":         time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		"2017-06-17T03:36Z":         time.Date(2017, 6, 17, 3, 36, 0, 0, time.UTC),
		"2017-06-17T03:36:15Z":      time.Date(2017, 6, 17, 3, 36, 15, 0, time.UTC),
		"2017-06-17T03:36:15.5Z":    time.Date(2017, 6, 17, 3, 36, 15, 500_000_000, time.UTC),
		"2017-06-17T05:36+02:00":    time.Date(2017, 6, 17, 3, 36, 0, 0, time.UTC),
		"2017-06-16T22:36:00-05:00": time.Date(2017, 6, 17, 3, 36, 0, 0, time.UTC),
	}
	for in, want := range accepted {
		t.Run(in, func(t *testing.T) {
			got, err := ParseUploaded(in)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	rejected := []string{
		"20170617T0336Z",
		"2017-06-17",
		"2017-06-17T03:36",
		"2017-06-17 03:36Z",
		"2017-06-17T03Z",
		"06/17/2017",
		"",
	}
	for _, in := range rejected {
		t.Run("reject "+in, func(t *testing.T) {
			_, err := ParseUploaded(in)
			assert.ErrorIs(t, err, apperrors.ErrInvalidTimestamp)
		})
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{`1`, "1", false},
		{`"abc"`, "abc", false},
		{`" 7 "`, "7", false},
		{`1.5`, "", true},
		{`null`, "", true},
		{`""`, "", true},
		{`true`, "", true},
		{``, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := normalizeID(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	var raw RawRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"users":["a"],"lines":["hello","world"],"uploaded":"2020-01-01T00:00Z"}`), &raw))

	doc, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "1", doc.ID)
	assert.Equal(t, []string{"a"}, doc.Users)
	assert.Equal(t, "hello\nworld", doc.Text)
}

func TestValidateReportsEveryField(t *testing.T) {
	var raw RawRecord
	require.NoError(t, json.Unmarshal([]byte(`{"lines":[],"uploaded":"yesterday"}`), &raw))

	_, err := Validate(raw)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, apperrors.ErrMalformedRecord)
	assert.Contains(t, verr.Fields, "id")
	assert.Contains(t, verr.Fields, "users")
	assert.Contains(t, verr.Fields, "lines")
	assert.Contains(t, verr.Fields, "uploaded")
}

func TestValidateTimestampOnly(t *testing.T) {
	var raw RawRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id":2,"users":["asdf"],"lines":["TESTING"],"uploaded":"20170617T0336Z"}`), &raw))

	_, err := Validate(raw)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTimestamp)
	assert.Equal(t, "invalid_timestamp", RejectionReason(err))
}

func TestCompareIDs(t *testing.T) {
	assert.Equal(t, -1, CompareIDs("2", "10"))
	assert.Equal(t, 1, CompareIDs("b", "a"))
	assert.Equal(t, -1, CompareIDs("9", "a"))
	assert.Equal(t, 0, CompareIDs("3", "3"))
}

func TestNewDocumentCopiesInput(t *testing.T) {
	lines := []string{"one"}
	doc := NewDocument("1", nil, lines, time.Now())
	lines[0] = "changed"
	assert.Equal(t, []string{"one"}, doc.Lines)
	assert.Equal(t, "one", doc.Text)
}
