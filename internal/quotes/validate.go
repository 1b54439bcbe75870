package quotes

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
)

// ValidationError holds per-field validation failure messages for one raw
// record.
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks a raw record and converts it into a Document. Every
// problem with the record is reported, not just the first.
func Validate(raw RawRecord) (*Document, error) {
	if raw.DecodeErr != nil {
		return nil, &ValidationError{
			Fields: map[string]string{"record": raw.DecodeErr.Error()},
			Err:    apperrors.ErrMalformedRecord,
		}
	}
	errs := make(map[string]string)
	timestampOnly := true

	id, err := normalizeID(raw.ID)
	if err != nil {
		errs["id"] = err.Error()
		timestampOnly = false
	}

	var users []string
	if raw.Users == nil {
		errs["users"] = "is required"
		timestampOnly = false
	} else {
		users = *raw.Users
		for i, u := range users {
			if strings.TrimSpace(u) == "" {
				errs["users"] = fmt.Sprintf("entry %d is blank", i)
				timestampOnly = false
				break
			}
		}
	}

	var lines []string
	if raw.Lines == nil {
		errs["lines"] = "is required"
		timestampOnly = false
	} else if len(*raw.Lines) == 0 {
		errs["lines"] = "must contain at least one line"
		timestampOnly = false
	} else {
		lines = *raw.Lines
	}

	var uploaded string
	if raw.Uploaded == nil {
		errs["uploaded"] = "is required"
		timestampOnly = false
	} else {
		uploaded = *raw.Uploaded
	}
	at, err := ParseUploaded(uploaded)
	if raw.Uploaded != nil && err != nil {
		errs["uploaded"] = err.Error()
	}

	if len(errs) > 0 {
		sentinel := apperrors.ErrMalformedRecord
		if timestampOnly {
			sentinel = apperrors.ErrInvalidTimestamp
		}
		return nil, &ValidationError{Fields: errs, Err: sentinel}
	}
	return NewDocument(id, users, lines, at), nil
}

// RejectionReason buckets a validation failure for logs and metrics.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, apperrors.ErrInvalidTimestamp):
		return "invalid_timestamp"
	default:
		return "malformed"
	}
}
